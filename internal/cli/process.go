package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xdelape/txproc/internal/csvio"
	"github.com/xdelape/txproc/internal/engine"
	"github.com/xdelape/txproc/internal/journal"
	"github.com/xdelape/txproc/internal/ledger"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Journal string
	Output  string

	// TokenGenerator overrides the run token generator (for testing).
	// If nil, defaults to UUIDv7.
	TokenGenerator journal.TokenGenerator
}

// accountJSON is the JSON rendering of one final account state.
type accountJSON struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process <input.csv>",
		Short: "Apply a transaction stream and report final balances",
		Long: `Read transactions from a CSV file, apply them in order, and write the
final per-client account states as CSV.

Rejected transactions and malformed rows are reported on stderr, one line
each, and do not stop the run. Only an unreadable input stream is fatal.

With --journal, every decision and the final balances are also recorded
to a SQLite audit journal for later replay verification and tracing.

Examples:
  txproc process transactions.csv > accounts.csv
  txproc process transactions.csv --journal audit.db
  txproc process transactions.csv --output accounts.csv --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite audit journal (optional)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "write account states to file instead of stdout")

	return cmd
}

func runProcess(opts *ProcessOptions, inputPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)

	input, err := os.Open(inputPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer input.Close()

	store := ledger.NewStore()
	engOpts := []engine.Option{engine.WithLogger(slog.Default())}

	var rec *journal.RunRecorder
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()

		gen := opts.TokenGenerator
		if gen == nil {
			gen = journal.UUIDv7Generator{}
		}
		rec, err = j.BeginRun(ctx, inputPath, gen)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin journal run", err)
		}
		slog.Info("journaling run", "token", rec.Token(), "path", opts.Journal)
		engOpts = append(engOpts, engine.WithRecorder(rec))
	}

	eng := engine.New(store, engOpts...)

	accepted, rejected, skipped, err := processStream(ctx, eng, input)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to process input", err)
	}
	slog.Info("stream processed",
		"accepted", accepted, "rejected", rejected, "skipped_rows", skipped, "accounts", store.Len())

	snapshot := store.Snapshot()
	if rec != nil {
		if err := rec.FinishRun(ctx, snapshot); err != nil {
			return WrapExitError(ExitCommandError, "failed to finish journal run", err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		out = f
	}
	if err := writeSnapshot(out, opts.Format, snapshot); err != nil {
		return WrapExitError(ExitCommandError, "failed to write account states", err)
	}
	return nil
}

// processStream pumps transactions from the reader into the engine.
// Per-row parse failures and per-transaction rejections are reported and
// skipped; anything else aborts the run.
func processStream(ctx context.Context, eng *engine.Engine, input io.Reader) (accepted, rejected, skipped int, err error) {
	r := csvio.NewReader(input)
	for {
		t, err := r.Read()
		if err == io.EOF {
			return accepted, rejected, skipped, nil
		}
		if csvio.IsRowError(err) {
			skipped++
			slog.Warn("skipping malformed row", "error", err)
			continue
		}
		if err != nil {
			return accepted, rejected, skipped, err
		}

		if err := eng.Apply(ctx, t); err != nil {
			code, ok := ledger.CodeOf(err)
			if !ok {
				return accepted, rejected, skipped, err
			}
			rejected++
			slog.Warn("transaction rejected",
				"code", code, "op", t.Op, "client", t.Client, "tx", t.Tx)
			continue
		}
		accepted++
	}
}

// writeSnapshot renders the final account states as CSV or, with
// --format json, as the standard JSON envelope.
func writeSnapshot(w io.Writer, format string, snapshot []ledger.Account) error {
	if format != "json" {
		return csvio.WriteAccounts(w, snapshot)
	}

	accounts := make([]accountJSON, 0, len(snapshot))
	for i := range snapshot {
		a := &snapshot[i]
		accounts = append(accounts, accountJSON{
			Client:    a.Client,
			Available: a.Available.StringFixed(ledger.AmountPlaces),
			Held:      a.Held.StringFixed(ledger.AmountPlaces),
			Total:     a.Total().StringFixed(ledger.AmountPlaces),
			Locked:    a.Locked,
		})
	}
	return writeJSON(w, accounts)
}
