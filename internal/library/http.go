package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// requestTimeout bounds every API round trip.
const requestTimeout = 15 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Unwrap maps HTTP status codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalid
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// HTTPClient implements Service against the library server's REST API.
// Authentication reuses a browser session: the session cookie is sent on
// every request and the CSRF token on every mutating one.
type HTTPClient struct {
	base    *url.URL
	client  *http.Client
	session string
	csrf    string
}

// Compile-time check that HTTPClient implements Service.
var _ Service = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the server at baseURL.
func NewHTTPClient(baseURL, sessionCookie, csrfToken string) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q needs an http(s) scheme: %w", baseURL, ErrInvalid)
	}
	return &HTTPClient{
		base:    u,
		client:  &http.Client{Timeout: requestTimeout},
		session: sessionCookie,
		csrf:    csrfToken,
	}, nil
}

// Location returns the server URL.
func (c *HTTPClient) Location() string { return c.base.String() }

// ── helpers ─────────────────────────────────────────────────────────────────

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: c.session})
	}
	if method != http.MethodGet && c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			switch {
			case payload.Error != "":
				msg = payload.Error
			case payload.Message != "":
				msg = payload.Message
			}
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// folderRef encodes the root as JSON null.
func folderRef(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func orderRef(order int) *int {
	if order == NoOrder {
		return nil
	}
	return &order
}

// ── Reads ───────────────────────────────────────────────────────────────────

// Projects merges the owned projects in folderID with the shared projects
// the user filed there.
func (c *HTTPClient) Projects(ctx context.Context, folderID int64) ([]Project, error) {
	scope := "root"
	if folderID != 0 {
		scope = strconv.FormatInt(folderID, 10)
	}
	var owned []Project
	if err := c.do(ctx, http.MethodGet, "/api/projects?folder_id="+scope, nil, &owned); err != nil {
		return nil, err
	}
	var shared []Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/shared-with-me", nil, &shared); err != nil {
		return nil, err
	}
	out := owned
	for _, p := range shared {
		if p.FolderID != folderID {
			continue
		}
		p.IsShared = true
		out = append(out, p)
	}
	return out, nil
}

// Folders lists the folders under parentID.
func (c *HTTPClient) Folders(ctx context.Context, parentID int64) ([]Folder, error) {
	path := "/api/folders"
	if parentID != 0 {
		path += "?parent_id=" + strconv.FormatInt(parentID, 10)
	}
	var out []Folder
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SharedTracks lists every track shared with the user.
func (c *HTTPClient) SharedTracks(ctx context.Context) ([]SharedTrack, error) {
	var out []SharedTrack
	if err := c.do(ctx, http.MethodGet, "/api/tracks/shared-with-me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Folder fetches one folder.
func (c *HTTPClient) Folder(ctx context.Context, id int64) (Folder, error) {
	var out Folder
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/folders/%d", id), nil, &out)
	return out, err
}

// FolderContents fetches a folder with everything directly inside it.
func (c *HTTPClient) FolderContents(ctx context.Context, id int64) (*FolderContents, error) {
	var out FolderContents
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/folders/%d/contents", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Folders ─────────────────────────────────────────────────────────────────

type folderBody struct {
	Name     string `json:"name,omitempty"`
	ParentID *int64 `json:"parent_id"`
}

// CreateFolder creates a folder under parentID.
func (c *HTTPClient) CreateFolder(ctx context.Context, name string, parentID int64) (Folder, error) {
	var out Folder
	err := c.do(ctx, http.MethodPost, "/api/folders", folderBody{Name: name, ParentID: folderRef(parentID)}, &out)
	return out, err
}

// RenameFolder renames a folder, keeping its parent.
func (c *HTTPClient) RenameFolder(ctx context.Context, id int64, name string) (Folder, error) {
	cur, err := c.Folder(ctx, id)
	if err != nil {
		return Folder{}, err
	}
	var out Folder
	err = c.do(ctx, http.MethodPut, fmt.Sprintf("/api/folders/%d", id),
		folderBody{Name: name, ParentID: folderRef(cur.ParentID)}, &out)
	return out, err
}

// MoveFolder reparents a folder. The server treats parent 0 as the root.
func (c *HTTPClient) MoveFolder(ctx context.Context, id, parentID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/folders/%d", id),
		folderBody{ParentID: &parentID}, nil)
}

// EmptyFolder moves a folder's contents to its parent and deletes it.
func (c *HTTPClient) EmptyFolder(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/folders/%d/empty", id), nil, nil)
}

// ── Owned projects ──────────────────────────────────────────────────────────

// MoveProject files an owned project into folderID.
func (c *HTTPClient) MoveProject(ctx context.Context, publicID string, folderID int64) error {
	body := struct {
		FolderID *int64 `json:"folder_id"`
	}{folderRef(folderID)}
	return c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(publicID)+"/folder", body, nil)
}

// MoveProjects files several owned projects into folderID with custom orders.
func (c *HTTPClient) MoveProjects(ctx context.Context, folderID int64, moves []ProjectMove) error {
	type entry struct {
		ProjectID   string `json:"project_id"`
		CustomOrder *int   `json:"custom_order,omitempty"`
	}
	body := struct {
		Projects []entry `json:"projects"`
		FolderID int64   `json:"folder_id"`
	}{FolderID: folderID}
	for _, m := range moves {
		body.Projects = append(body.Projects, entry{ProjectID: m.PublicID, CustomOrder: orderRef(m.CustomOrder)})
	}
	return c.do(ctx, http.MethodPost, "/api/projects/move-to-folder", body, nil)
}

// ── Shared items ────────────────────────────────────────────────────────────

type organizeBody struct {
	FolderID    *int64 `json:"folder_id"`
	CustomOrder *int   `json:"custom_order,omitempty"`
}

// OrganizeSharedProject files a shared project.
func (c *HTTPClient) OrganizeSharedProject(ctx context.Context, projectID, folderID int64, order int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/shared-projects/%d/organize", projectID),
		organizeBody{FolderID: folderRef(folderID), CustomOrder: orderRef(order)}, nil)
}

// OrganizeSharedTrack files a shared track.
func (c *HTTPClient) OrganizeSharedTrack(ctx context.Context, trackID, folderID int64, order int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/shared-tracks/%d/organize", trackID),
		organizeBody{FolderID: folderRef(folderID), CustomOrder: orderRef(order)}, nil)
}

// LeaveSharedProject leaves a project shared with the user.
func (c *HTTPClient) LeaveSharedProject(ctx context.Context, publicID string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(publicID)+"/leave", nil, nil)
}

// LeaveSharedTrack removes a shared track.
func (c *HTTPClient) LeaveSharedTrack(ctx context.Context, trackID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/shared-tracks/%d/leave", trackID), nil, nil)
}
