package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdelape/txproc/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	Run     string // optional - specific run only
}

// ReplaySummary holds the overall replay result across runs.
type ReplaySummary struct {
	Runs             []journal.ReplayResult `json:"runs"`
	TotalRuns        int                    `json:"total_runs"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled runs and verify determinism",
		Long: `Re-apply each journaled run's decision stream through a fresh engine
and verify that every per-transaction outcome and the final balances
match what was recorded.

Exit codes:
  0 - all runs replay deterministically
  1 - divergences detected
  2 - command error (journal not found, etc.)

Examples:
  txproc replay --journal audit.db
  txproc replay --journal audit.db --run 0190a8b2-...
  txproc replay --journal audit.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite audit journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Run, "run", "", "replay a specific run token only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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

	var tokens []string
	if opts.Run != "" {
		tokens = []string{opts.Run}
	} else {
		runs, err := j.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			tokens = append(tokens, r.Token)
		}
	}

	out := cmd.OutOrStdout()
	if len(tokens) == 0 {
		if opts.Format == "json" {
			return writeJSON(out, ReplaySummary{Runs: []journal.ReplayResult{}, AllDeterministic: true})
		}
		fmt.Fprintln(out, "No runs found in journal.")
		return nil
	}

	summary := ReplaySummary{
		Runs:             make([]journal.ReplayResult, 0, len(tokens)),
		TotalRuns:        len(tokens),
		AllDeterministic: true,
	}
	for _, token := range tokens {
		result, err := j.Replay(ctx, token)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", token), err)
		}
		summary.Runs = append(summary.Runs, *result)
		if !result.Deterministic {
			summary.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(out, summary); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode result", err)
		}
	} else {
		for _, r := range summary.Runs {
			status := "deterministic"
			if !r.Deterministic {
				status = "DIVERGED"
			}
			fmt.Fprintf(out, "run %s: %s (%d decisions, %d accounts)\n",
				r.Token, status, r.Decisions, r.Accounts)
			for _, d := range r.Divergences {
				if d.Seq != 0 {
					fmt.Fprintf(out, "  seq %d %s: recorded %q, replayed %q\n", d.Seq, d.Subject, d.Want, d.Got)
				} else {
					fmt.Fprintf(out, "  %s: recorded %q, replayed %q\n", d.Subject, d.Want, d.Got)
				}
			}
		}
	}

	if !summary.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from recorded run")
	}
	return nil
}
