package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/taxledger/internal/ledger"
)

// PositionOptions holds flags for the position command.
type PositionOptions struct {
	*RootOptions
	Date string
}

// PositionResult is the position command's output.
type PositionResult struct {
	Date        string `json:"date"`
	Owed        int64  `json:"owed"`
	Paid        int64  `json:"paid"`
	TaxPosition int64  `json:"taxPosition"`
	Lines       int    `json:"lines"`
}

func (r PositionResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tax position at %s\n", r.Date)
	fmt.Fprintf(&b, "  owed:     %d (%d lines)\n", r.Owed, r.Lines)
	fmt.Fprintf(&b, "  paid:     %d\n", r.Paid)
	fmt.Fprintf(&b, "  position: %d", r.TaxPosition)
	return b.String()
}

// NewPositionCommand creates the position command.
func NewPositionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PositionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "position",
		Short: "Print the tax position at a date",
		Long: `Compute the tax position at --date from the ledger.

The position is the tax owed on every sale line in force at the date,
amendments applied and rounded once, minus all tax payments dated at or
before it. A negative position means tax was overpaid.

Example:
  taxledger position --db ./taxledger.db --date 2024-02-01T00:00:00Z
  taxledger position --date 2024-02-01T00:00:00+01:00 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPosition(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "cutoff date, RFC 3339 with offset (required)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runPosition(opts *PositionOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	cutoff, err := sess.validator.ParseDate(opts.Date)
	if err != nil {
		return sess.out.Fail(ledgerExitError("invalid date", err))
	}

	pos, err := sess.resolver().Position(commandContext(cmd), cutoff)
	if err != nil {
		return sess.out.Fail(ledgerExitError("failed to compute position", err))
	}

	return sess.out.Success(newPositionResult(pos))
}

func newPositionResult(pos ledger.Position) PositionResult {
	return PositionResult{
		Date:        pos.Date.Format(time.RFC3339Nano),
		Owed:        pos.Owed,
		Paid:        pos.Paid,
		TaxPosition: pos.TaxPosition,
		Lines:       pos.Lines,
	}
}
