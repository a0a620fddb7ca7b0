package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/taxledger/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Open the configured ledger store and serve the HTTP API.

The ledger table is created if it does not exist, so serve can be pointed
at an empty database. SIGINT or SIGTERM drains in-flight requests and
stops the server.

Routes:
  POST  /transactions   record a SALE or TAX_PAYMENT
  PATCH /sale           record an ITEM_AMENDMENT
  GET   /tax-position   tax position at ?date=
  GET   /healthz        store liveness

Example:
  taxledger serve --db ./taxledger.db --listen :8080
  taxledger serve --db postgres://localhost/taxledger?sslmode=disable`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default from config, :8080)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()
	slog.SetDefault(sess.logger)

	listen := sess.cfg.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}

	srv, err := api.New(sess.store, api.Config{
		MaxBodyBytes:   sess.cfg.MaxBodyBytes,
		RateLimitRPS:   sess.cfg.RateLimit.RPS,
		RateLimitBurst: sess.cfg.RateLimit.Burst,
		Logger:         sess.logger,
	})
	if err != nil {
		return sess.out.Fail(WrapExitError(ExitCommandError, "failed to build server", err))
	}
	defer srv.Close()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			sess.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sess.logger.Info("server starting", "listen", listen, "driver", sess.cfg.Database.Driver)
	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Serving ledger on %s. Press Ctrl-C to stop.\n", listen)
	}

	if err := srv.Run(ctx, listen, sess.cfg.ShutdownTimeout); err != nil {
		return sess.out.Fail(WrapExitError(ExitCommandError, "server error", err))
	}

	sess.logger.Info("server stopped gracefully")
	return nil
}
