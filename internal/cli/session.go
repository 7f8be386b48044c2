package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/invstore/internal/config"
	"github.com/roach88/invstore/internal/logging"
	"github.com/roach88/invstore/internal/manager"
)

// session is the per-command wiring: resolved config, logger, registry and
// an output formatter. Commands that touch invoices also open a Manager.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	reg       *manager.Registry
	mgr       *manager.Manager
	info      manager.Info
	out       *OutputFormatter
}

// newSession resolves configuration (defaults, file, environment, flags),
// validates it, and builds the logger and registry.
func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, out.Fail("invalid configuration", err)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, out.Fail("failed to set up logging", err)
	}

	reg := manager.NewRegistry(cfg.Store.Dir,
		manager.WithRegistryLogger(logger),
		manager.WithBlockedTimeout(cfg.Store.BlockedTimeout),
	)

	return &session{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
		reg:       reg,
		out:       out,
	}, nil
}

func resolveConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("INVSTORE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	// Flags win over file and environment
	if opts.Dir != "" {
		cfg.Store.Dir = opts.Dir
	}
	if opts.Name != "" {
		cfg.Store.Name = opts.Name
	}
	if opts.SchemaVersion != 0 {
		cfg.Store.Version = opts.SchemaVersion
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open connects the session's Manager to the configured store.
func (s *session) open(ctx context.Context, opts *RootOptions) error {
	var mopts []manager.Option
	if opts.RequestIDs != nil {
		mopts = append(mopts, manager.WithRequestIDs(opts.RequestIDs))
	}
	m := manager.New(s.reg, mopts...)

	info, err := m.Open(ctx, s.cfg.Store.Name, s.cfg.Store.Version).Wait(ctx)
	if err != nil {
		return s.out.Fail("failed to open store", err)
	}
	s.out.VerboseLog("opened %s v%d at %s", info.Name, info.Version, info.Path)
	s.mgr = m
	s.info = info
	return nil
}

// Close releases the Manager (if opened) and the log file.
func (s *session) Close() {
	if s.mgr != nil {
		if err := s.mgr.Close(); err != nil {
			s.logger.Error("error closing store", "error", err)
		}
	}
	if err := s.logCloser.Close(); err != nil {
		fmt.Fprintf(s.out.GetErrWriter(), "error closing log file: %v\n", err)
	}
}

// withStore runs fn against an open store, handling setup and teardown.
func withStore(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := newSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.open(ctx, opts); err != nil {
		return err
	}
	return fn(ctx, s)
}
