package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdelape/txproc/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	Tx      uint32
	Run     string // optional - defaults to the latest run
}

// TraceResult holds the decision history for one transaction id.
type TraceResult struct {
	Run       string       `json:"run"`
	Tx        uint32       `json:"tx"`
	Decisions []traceEntry `json:"decisions"`
}

type traceEntry struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Client uint16 `json:"client"`
	Amount string `json:"amount,omitempty"`
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a transaction's decision history",
		Long: `Show every journaled decision touching a transaction id: the
originating deposit or withdrawal plus each dispute lifecycle operation,
accepted or rejected, in processing order.

Defaults to the most recent run; use --run to inspect an earlier one.

Examples:
  txproc trace --journal audit.db --tx 42
  txproc trace --journal audit.db --tx 42 --run 0190a8b2-...
  txproc trace --journal audit.db --tx 42 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite audit journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().Uint32Var(&opts.Tx, "tx", 0, "transaction id to trace (required)")
	_ = cmd.MarkFlagRequired("tx")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run token (defaults to latest run)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	token := opts.Run
	if token == "" {
		latest, err := j.LatestRun(ctx)
		if errors.Is(err, journal.ErrNoRuns) {
			return NewExitError(ExitCommandError, "journal contains no runs")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest run", err)
		}
		token = latest.Token
	}

	decisions, err := j.Trace(ctx, token, opts.Tx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to trace transaction", err)
	}

	result := TraceResult{Run: token, Tx: opts.Tx, Decisions: make([]traceEntry, 0, len(decisions))}
	for _, d := range decisions {
		entry := traceEntry{
			Seq:    d.Seq,
			Op:     string(d.Op),
			Client: d.Client,
			Status: d.Status,
			Code:   string(d.Code),
		}
		if d.Op.HasAmount() {
			entry.Amount = d.Amount.String()
		}
		result.Decisions = append(result.Decisions, entry)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode result", err)
		}
		return nil
	}

	if len(result.Decisions) == 0 {
		fmt.Fprintf(out, "tx %d: no decisions in run %s\n", opts.Tx, token)
		return nil
	}
	fmt.Fprintf(out, "tx %d (run %s):\n", opts.Tx, token)
	for _, e := range result.Decisions {
		line := fmt.Sprintf("  seq %d: %s client=%d %s", e.Seq, e.Op, e.Client, e.Status)
		if e.Amount != "" {
			line += " amount=" + e.Amount
		}
		if e.Code != "" {
			line += " code=" + e.Code
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
