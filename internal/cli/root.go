package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string // YAML config file, optional
	Database   string // sqlite path, postgres DSN or "memory"
	Driver     string // overrides the driver inferred from Database
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taxledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taxledger",
		Short: "taxledger - append-only sales tax ledger",
		Long: `An append-only ledger of sales, tax payments and item amendments,
answering "what is the tax position at date D?" from the events alone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "sqlite path, postgres:// DSN, or \"memory\"")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite|postgres|memory)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPositionCommand(opts))
	cmd.AddCommand(NewSaleCommand(opts))
	cmd.AddCommand(NewPaymentCommand(opts))
	cmd.AddCommand(NewAmendCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the root command with args and returns the process exit
// code. Errors not already reported by the command are printed to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// cobra's own errors: unknown command, bad flags, wrong arg count
		exitErr = WrapExitError(ExitCommandError, "command error", err)
	}
	if !exitErr.reported {
		fmt.Fprintf(stderr, "Error: %v\n", exitErr)
	}
	return exitErr.Code
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
