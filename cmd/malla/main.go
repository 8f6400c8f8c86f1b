// Package main provides the CLI entrypoint for malla.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/config"
	"github.com/notegood/malla/internal/gating"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/progress"
	"github.com/notegood/malla/internal/store"
	"github.com/notegood/malla/internal/tui"
	"github.com/notegood/malla/internal/view"
)

const (
	defaultPolicy     = model.PolicyApproved
	defaultShowLocked = true
	defaultShowTaking = true
)

var (
	catalogPath       string
	policyName        string
	dbPath            string
	statePath         string
	verbose           bool
	includeZeroCredit bool
	includeExtra      bool
	showLocked        bool
	showTaking        bool

	logger = zap.NewNop()
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "malla",
		Short:        "Track a university curriculum and its prerequisites",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runGridCmd,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := newLogger(cmd.Root() == cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = built
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if err := logger.Sync(); err != nil {
				// Best-effort flush.
				_ = err
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&catalogPath, "catalog", config.DefaultCatalogPath(), "catalog file path or http(s) URL (JSON or YAML)")
	pf.StringVar(&policyName, "policy", string(defaultPolicy), "prerequisite policy: approved or approved-or-taking")
	pf.StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database for progress")
	pf.StringVar(&statePath, "state", "", "store progress in this JSON file instead of the database")
	pf.BoolVar(&includeZeroCredit, "include-zero-credit", false, "count zero-credit courses toward completion")
	pf.BoolVar(&includeExtra, "include-extra", false, "count extra courses toward completion")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.Flags().BoolVar(&showLocked, "show-locked", defaultShowLocked, "show locked courses")
	rootCmd.Flags().BoolVar(&showTaking, "show-taking", defaultShowTaking, "show in-progress courses")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newApproveCmd())
	rootCmd.AddCommand(newTakeCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newMissingCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newCheckCmd())

	return rootCmd
}

// newLogger builds the process logger. The grid owns the terminal, so it
// logs to a file; other commands log to stderr.
func newLogger(toFile bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	level := zapcore.WarnLevel
	if toFile {
		path := config.DefaultLogPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		level = zapcore.InfoLevel
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func runGridCmd(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	sess, err := openSession(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer sess.close()

	location := settings.CatalogPath
	m := tui.NewModel(sess.adapter, tui.Options{
		Filter: view.Filter{ShowLocked: settings.ShowLocked, ShowTaking: settings.ShowTaking},
		Logger: logger,
		Reload: func(ctx context.Context) (*catalog.Catalog, error) {
			return loadCatalog(ctx, location)
		},
	})
	if err := tui.Run(m, location, logger); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

type session struct {
	adapter *view.Adapter
	closers []func() error
}

func (s *session) close() {
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			logErrf("failed to close: %v\n", err)
		}
	}
}

func openSession(ctx context.Context, s model.Settings) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cat, err := loadCatalog(ctx, s.CatalogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w\nplace a catalog at %s or pass --catalog", err, s.CatalogPath)
		}
		return nil, err
	}
	for _, p := range catalog.Validate(cat) {
		logger.Warn("catalog problem", zap.String("problem", p.String()))
	}

	sess := &session{}
	var backend progress.Backend
	if s.StatePath != "" {
		backend = progress.NewFileBackend(s.StatePath)
	} else {
		st, err := store.Open(s.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		sess.closers = append(sess.closers, st.Close)
		backend = st
	}

	ps := progress.NewStore(backend, logger)
	ps.Load(ctx)
	sess.adapter = view.New(cat, ps, gating.Options{
		Policy: s.Policy,
		Eligible: gating.Eligibility{
			IncludeZeroCredit: s.IncludeZeroCredit,
			IncludeExtra:      s.IncludeExtra,
		}.Predicate(),
	})
	return sess, nil
}

func loadCatalog(ctx context.Context, location string) (*catalog.Catalog, error) {
	cat, err := catalog.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded",
		zap.String("location", location),
		zap.Int("courses", cat.Len()),
		zap.Int("areas", len(cat.Areas())))
	return cat, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
