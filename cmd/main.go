package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Akashdeep-Patra/crate/internal/app"
	"github.com/Akashdeep-Patra/crate/internal/common"
	"github.com/Akashdeep-Patra/crate/internal/config"
	"github.com/Akashdeep-Patra/crate/internal/covers"
	"github.com/Akashdeep-Patra/crate/internal/grid"
	"github.com/Akashdeep-Patra/crate/internal/library"
	"github.com/Akashdeep-Patra/crate/internal/logging"
	"github.com/Akashdeep-Patra/crate/internal/ui"
	"github.com/Akashdeep-Patra/crate/internal/watcher"
)

// Build-time variables injected via ldflags by GoReleaser / Taskfile.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	// ── Multi-instance resource tuning ──────────────────────────────
	//
	// The TUI spends its time waiting on terminal input, the database and
	// cover downloads. Two OS threads cover rendering and message dispatch.
	// An explicit GOMAXPROCS wins.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(min(2, runtime.NumCPU()))
	}

	// Cover thumbnails are the largest allocation; 64 MiB keeps RSS low
	// with several instances open.
	debug.SetMemoryLimit(64 * 1024 * 1024)
}

func main() {
	rootCmd := buildRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crate:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crate",
		Short: "Organize a music library by dragging tiles",
		Long: `crate shows the projects, folders and shared tracks of a music library
as a grid of tiles. Drag a tile onto another with the mouse to group them
into a folder or to file it into an existing one.`,
		RunE:          runApp,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"crate %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  os/arch: %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH,
	))

	rootCmd.PersistentFlags().String("db", "", "Path to the library database (overrides config)")
	rootCmd.Flags().Int64("folder", 0, "Folder to open (0 = root)")

	rootCmd.AddCommand(buildVersionCmd())
	rootCmd.AddCommand(buildCompletionCmd())
	rootCmd.AddCommand(buildSeedCmd())
	rootCmd.AddCommand(buildLsCmd())

	return rootCmd
}

// loadConfig reads the config and applies the --db override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database = db
		cfg.Backend = config.BackendSQLite
	}
	return cfg, nil
}

// openService connects the configured backend. The returned closer
// releases it.
func openService(ctx context.Context, cfg *config.Config) (library.Service, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		client, err := library.NewHTTPClient(cfg.ServerURL, cfg.SessionCookie, cfg.CSRFToken)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to %s: %w", cfg.ServerURL, err)
		}
		return client, io.NopCloser(nil), nil
	default:
		store, err := library.OpenSQLite(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("opening library: %w", err)
		}
		return store, store, nil
	}
}

func runApp(cmd *cobra.Command, _ []string) error {
	scope, _ := cmd.Flags().GetInt64("folder")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout belongs to the TUI; logs go to a file.
	log, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	inner, closer, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	// Coalesces the three snapshot reads of one refresh cycle.
	svc := library.NewCachedService(inner, cfg.CacheTTL)

	model := app.New(app.Deps{
		Service: svc,
		Config:  cfg,
		Covers:  covers.New(ui.CoverW, ui.CoverH, log),
		Logger:  log,
	}, scope)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Another writer (a second crate, the seed command) changed the
	// database; refetch.
	if cfg.Backend == config.BackendSQLite {
		watchCh, stop, watchErr := watcher.Watch(cfg.Database, cfg.WatchDebounce, log)
		if watchErr != nil {
			log.Warn("database watcher unavailable", "error", watchErr)
		} else {
			defer stop()
			go func() {
				for range watchCh {
					svc.Invalidate()
					p.Send(common.RefreshMsg{})
				}
			}()
		}
	}

	log.Info("starting", "version", version, "backend", cfg.Backend, "location", svc.Location(), "folder", scope)
	_, err = p.Run()
	return err
}

// ── ls ──────────────────────────────────────────────────────────────────────

type lsEntry struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	SharedBy string `json:"shared_by,omitempty"`
	Items    int    `json:"items,omitempty"`
}

func buildLsCmd() *cobra.Command {
	var (
		jsonOutput bool
		scope      int64
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List a folder the way the grid lays it out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, closer, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			snap, err := library.Load(ctx, svc, scope)
			if err != nil {
				return err
			}
			entries := listEntries(grid.NewReconciler(scope).Reconcile(nil, snap).Items)
			return writeEntries(cmd.OutOrStdout(), entries, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().Int64Var(&scope, "folder", 0, "Folder to list (0 = root)")

	return cmd
}

func listEntries(items []grid.Item) []lsEntry {
	entries := make([]lsEntry, 0, len(items))
	for _, it := range items {
		e := lsEntry{ID: it.ItemID(), Kind: it.Kind().String(), Name: it.Label()}
		switch it := it.(type) {
		case grid.ProjectItem:
			e.SharedBy = it.SharedBy
		case grid.TrackItem:
			e.SharedBy = it.SharedBy
		case grid.FolderItem:
			e.Items = len(it.Items)
		}
		entries = append(entries, e)
	}
	return entries
}

func writeEntries(w io.Writer, entries []lsEntry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		note := e.SharedBy
		if note != "" {
			note = "from " + note
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind, e.ID, e.Name, note)
	}
	return tw.Flush()
}

// ── seed ────────────────────────────────────────────────────────────────────

func buildSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the local library with demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := library.OpenSQLite(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("opening library: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := seed(cmd.Context(), store); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s\n", store.Location())
			return nil
		},
	}
}

func seed(ctx context.Context, s *library.SQLiteStore) error {
	sketches, err := s.CreateFolder(ctx, "Sketches", 0)
	if err != nil {
		return err
	}
	for _, name := range []string{"Night Drive", "Glass Harbor", "Low Tide", "Paper Moons"} {
		if _, err := s.AddProject(ctx, name, "me", "", 0); err != nil {
			return err
		}
	}
	for _, name := range []string{"Idea 14", "Idea 15"} {
		if _, err := s.AddProject(ctx, name, "me", "", sketches.ID); err != nil {
			return err
		}
	}
	for _, p := range []struct{ name, by string }{{"Remix Pack", "sam"}, {"Live at Vault", "kim"}} {
		if _, err := s.AddSharedProject(ctx, p.name, p.by, "", 0); err != nil {
			return err
		}
	}
	tracks := []library.SharedTrack{
		{Title: "Stem 3 (vox)", Artist: "Kim", ProjectName: "Live at Vault", SharedByUsername: "kim", DurationSeconds: 212},
		{Title: "Bassline v2", Artist: "Sam", ProjectName: "Remix Pack", SharedByUsername: "sam", CanDownload: true, DurationSeconds: 95},
	}
	for _, t := range tracks {
		if _, err := s.AddSharedTrack(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// ── version / completion ────────────────────────────────────────────────────

// buildVersionCmd creates the `crate version` subcommand supporting --json.
func buildVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"date":    date,
				"go":      runtime.Version(),
				"os":      runtime.GOOS,
				"arch":    runtime.GOARCH,
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, _ = fmt.Fprintf(out, "crate %s\n", version)
			_, _ = fmt.Fprintf(out, "  commit:  %s\n", commit)
			_, _ = fmt.Fprintf(out, "  built:   %s\n", date)
			_, _ = fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
			_, _ = fmt.Fprintf(out, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	return cmd
}

// buildCompletionCmd creates the `crate completion` subcommand for shell completions.
func buildCompletionCmd() *cobra.Command {
	shells := []string{"bash", "zsh", "fish", "powershell"}
	cmd := &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for crate.

Examples:
  # Bash (add to ~/.bashrc)
  crate completion bash > /etc/bash_completion.d/crate

  # Zsh (add to ~/.zshrc before compinit)
  crate completion zsh > "${fpath[1]}/_crate"

  # Fish
  crate completion fish > ~/.config/fish/completions/crate.fish

  # PowerShell
  crate completion powershell > crate.ps1`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}

	return cmd
}
