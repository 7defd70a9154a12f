package library

import (
	"errors"
	"time"
)

// NoOrder marks a move that carries no custom order.
const NoOrder = -1

// Sentinel errors shared by every Service implementation.
var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
	ErrConflict = errors.New("conflict")
)

// Project is a music project. Owned projects have an empty SharedByUsername;
// projects shared with the current user carry IsShared and the sharer's name.
type Project struct {
	ID               int64     `json:"id"`
	PublicID         string    `json:"public_id"`
	Name             string    `json:"name"`
	CoverURL         string    `json:"cover_url,omitempty"`
	FolderID         int64     `json:"folder_id,omitempty"`
	CustomOrder      int       `json:"custom_order,omitempty"`
	OwnerUsername    string    `json:"owner_username,omitempty"`
	IsShared         bool      `json:"is_shared,omitempty"`
	SharedByUsername string    `json:"shared_by_username,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Folder groups projects, shared tracks and other folders.
// ParentID 0 means the folder lives at the root.
type Folder struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ParentID    int64     `json:"parent_id,omitempty"`
	FolderOrder int       `json:"folder_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SharedTrack is a single track another user shared with the current user.
type SharedTrack struct {
	ID               int64  `json:"id"`
	PublicID         string `json:"public_id"`
	Title            string `json:"title"`
	Artist           string `json:"artist,omitempty"`
	CoverURL         string `json:"cover_url,omitempty"`
	ProjectName      string `json:"project_name"`
	ProjectID        int64  `json:"project_id"`
	ProjectPublicID  string `json:"project_public_id"`
	SharedByUsername string `json:"shared_by_username"`
	CanDownload      bool   `json:"can_download"`
	FolderID         int64  `json:"folder_id,omitempty"`
	CustomOrder      int    `json:"custom_order,omitempty"`
	DurationSeconds  int    `json:"duration_seconds,omitempty"`
}

// FolderContents is everything directly inside one folder.
type FolderContents struct {
	Folder       Folder        `json:"folder"`
	Folders      []Folder      `json:"folders"`
	Projects     []Project     `json:"projects"`
	SharedTracks []SharedTrack `json:"shared_tracks"`
}

// ProjectMove places one owned project at a custom order inside a folder.
type ProjectMove struct {
	PublicID    string
	CustomOrder int
}

// Snapshot is one authoritative view of a scope: the projects and folders
// inside it plus every track shared with the user.
type Snapshot struct {
	Projects     []Project
	Folders      []Folder
	SharedTracks []SharedTrack
}
