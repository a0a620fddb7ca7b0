package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/taxledger/internal/config"
	"github.com/roach88/taxledger/internal/ledger"
	"github.com/roach88/taxledger/internal/store"
	"github.com/roach88/taxledger/internal/store/memory"
	"github.com/roach88/taxledger/internal/store/postgres"
	"github.com/roach88/taxledger/internal/validate"
)

// session is the per-command wiring: resolved config, logger, open store.
type session struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ledger.Store
	validator *validate.Validator
	out       *OutputFormatter
}

// openSession loads the config, applies the global flags over it and opens
// the configured store. Every failure here is a command error.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, out.Fail(WrapExitError(ExitCommandError, "invalid configuration", err))
	}

	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, out.Fail(WrapExitError(ExitCommandError, "invalid configuration", err))
	}

	validator, err := validate.New()
	if err != nil {
		return nil, out.Fail(WrapExitError(ExitCommandError, "failed to load schemas", err))
	}

	st, err := openStore(commandContext(cmd), cfg.Database)
	if err != nil {
		return nil, out.Fail(WrapExitError(ExitCommandError, "failed to open database", err))
	}
	logger.Debug("store opened", "driver", cfg.Database.Driver)

	return &session{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		validator: validator,
		out:       out,
	}, nil
}

// Close closes the store, logging rather than returning a failure.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

func (s *session) writer() *ledger.Writer {
	return ledger.NewWriter(s.store, ledger.WithLogger(s.logger))
}

func (s *session) resolver() *ledger.Resolver {
	return ledger.NewResolver(s.store, ledger.WithLogger(s.logger))
}

// loadConfig resolves configuration: defaults, file, environment, flags.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	if opts.Database != "" {
		cfg.SetDatabase(opts.Database)
	}
	switch opts.Driver {
	case "":
	case config.DriverPostgres:
		cfg.Database.Driver = config.DriverPostgres
		if opts.Database != "" {
			cfg.Database.DSN = opts.Database
		}
	default:
		cfg.Database.Driver = opts.Driver
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the backend named by db.Driver.
func openStore(ctx context.Context, db config.DatabaseConfig) (ledger.Store, error) {
	switch db.Driver {
	case config.DriverSQLite:
		return store.Open(db.Path)
	case config.DriverPostgres:
		return postgres.Open(ctx, db.DSN)
	case config.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", db.Driver)
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
