/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the roster engine: runs the HTTP server, ingests
  workbooks from disk, lists the upload log, and previews normalization.

COMMANDS:
  serve              Start the HTTP API (and the inbox scanner if configured)
  ingest FILE...     Ingest workbooks into the database
  uploads            Print recent processed uploads
  normalize FILE     Print normalized records as JSON without saving

GLOBAL FLAGS:
  --env-file   .env file to load (default: .env, missing is fine)
  --addr       HTTP listen address (ROSTER_ADDR)
  --db         SQLite database path (ROSTER_DB), ":memory:" for in-memory
  --log-level  debug, info, warn, error (LOG_LEVEL)
  --log-json   JSON logs (LOG_JSON)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the inbox scanner
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  roster serve --db ./data/roster.db
  roster ingest "Roster Report.6.10.2025.xlsx" --force
  roster normalize roster.xls

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - ingest/ingester.go: Ingestion flow
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/warp/roster-engine/api"
	"github.com/warp/roster-engine/config"
	"github.com/warp/roster-engine/ingest"
	"github.com/warp/roster-engine/logger"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/sheet"
	"github.com/warp/roster-engine/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs after flags are parsed.
type app struct {
	cfg    config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	var (
		a       app
		envFile string
	)

	root := &cobra.Command{
		Use:          "roster",
		Short:        "Normalize and store shift roster workbooks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger.New(cfg.LogLevel, cfg.LogJSON)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", ".env file to load")
	flags.String("addr", "", "HTTP listen address")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "emit JSON logs")

	root.AddCommand(
		newServeCmd(&a),
		newIngestCmd(&a),
		newUploadsCmd(&a),
		newNormalizeCmd(),
	)
	return root
}

// applyFlags overrides env values with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.LogJSON, _ = flags.GetBool("log-json")
	}
}

// openIngester opens the store and builds an ingester around it.
func (a *app) openIngester(reg prometheus.Registerer) (*sqlite.Store, *ingest.Ingester, error) {
	store, err := sqlite.New(a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	loc, err := a.cfg.Location()
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	in := ingest.NewIngester(store, sheet.NewReader(), a.logger)
	in.Location = loc
	if reg != nil {
		in.Metrics = ingest.NewMetrics(reg)
	}
	return store, in, nil
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve()
		},
	}
}

func (a *app) serve() error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, in, err := a.openIngester(reg)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(in)
	handler.MaxUploadBytes = a.cfg.MaxUploadBytes()
	router := api.NewRouter(handler, api.RouterOptions{
		Password: a.cfg.Password,
		Gatherer: reg,
	})

	var inbox *ingest.InboxScheduler
	if a.cfg.InboxDir != "" {
		inbox = ingest.NewInboxScheduler(a.cfg.InboxDir, in)
		inbox.ScanInterval = a.cfg.InboxInterval
		inbox.Start()
	}

	server := &http.Server{
		Addr:         a.cfg.Addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.cfg.Addr, "db", a.cfg.DBPath, "gate", a.cfg.Password != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if inbox != nil {
			inbox.Stop()
		}
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	a.logger.Info("shutting down server")
	if inbox != nil {
		inbox.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

// =============================================================================
// INGEST
// =============================================================================

func newIngestCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest roster workbooks into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, in, err := a.openIngester(nil)
			if err != nil {
				return err
			}
			defer store.Close()

			files := make([]ingest.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				files = append(files, ingest.File{Name: filepath.Base(path), Data: data})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			failed := 0
			for _, out := range in.IngestBatch(ctx, files, force) {
				line := fmt.Sprintf("%-8s %s", out.Status, out.Filename)
				switch out.Status {
				case ingest.StatusSuccess:
					line += fmt.Sprintf(" (%d rows)", out.RowCount)
				case ingest.StatusError:
					failed++
					line += ": " + out.Err.Error()
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reprocess files that already succeeded")
	return cmd
}

// =============================================================================
// UPLOADS
// =============================================================================

func newUploadsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "List recent processed uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sqlite.New(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			uploads, err := store.RecentUploads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, u := range uploads {
				rows := "-"
				if u.RowCount != nil {
					rows = fmt.Sprint(*u.RowCount)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %6s  %s  %s\n",
					u.IngestedAt.Format(time.RFC3339), u.Status, rows, u.Filename, u.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}

// =============================================================================
// NORMALIZE
// =============================================================================

func newNormalizeCmd() *cobra.Command {
	var sheetName string

	cmd := &cobra.Command{
		Use:   "normalize FILE",
		Short: "Print normalized records as JSON without saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])

			reader := &sheet.Reader{Sheet: sheetName}
			grid, err := reader.ReadGrid(name, data)
			if err != nil {
				return err
			}

			records, err := roster.Normalize(grid, name)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
	cmd.Flags().StringVar(&sheetName, "sheet", "", "worksheet name (default: first sheet)")
	return cmd
}
