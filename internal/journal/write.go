package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/xdelape/txproc/internal/engine"
	"github.com/xdelape/txproc/internal/ledger"
)

// RunRecorder records one processing run: its decision stream while the
// engine runs, then the final balances. It implements
// engine.DecisionRecorder.
type RunRecorder struct {
	j     *Journal
	token string
}

// Token returns the run token.
func (r *RunRecorder) Token() string {
	return r.token
}

// BeginRun registers a new run and returns its recorder.
// The input label is descriptive only (typically the input file path).
func (j *Journal) BeginRun(ctx context.Context, input string, gen TokenGenerator) (*RunRecorder, error) {
	token := gen.Generate()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (token, input, started_at)
		VALUES (?, ?, ?)
	`, token, input, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &RunRecorder{j: j, token: token}, nil
}

// RecordDecision appends one decision to the run's stream.
// ON CONFLICT DO NOTHING makes re-recording a (run, seq) pair idempotent.
func (r *RunRecorder) RecordDecision(ctx context.Context, d engine.Decision) error {
	var amount any
	if d.Op.HasAmount() {
		amount = d.Amount.String()
	}
	var code any
	if d.Code != "" {
		code = string(d.Code)
	}

	_, err := r.j.db.ExecContext(ctx, `
		INSERT INTO decisions (run_token, seq, op, client, tx, amount, status, code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, r.token, d.Seq, string(d.Op), d.Client, d.Tx, amount, d.Status, code)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// FinishRun stores the final account snapshot for the run.
// Position preserves the snapshot's first-seen client order so replay can
// compare output ordering, not just balances.
func (r *RunRecorder) FinishRun(ctx context.Context, snapshot []ledger.Account) error {
	txn, err := r.j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	defer txn.Rollback()

	for i := range snapshot {
		a := &snapshot[i]
		locked := 0
		if a.Locked {
			locked = 1
		}
		_, err := txn.ExecContext(ctx, `
			INSERT INTO balances (run_token, client, available, held, locked, position)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, r.token, a.Client, a.Available.String(), a.Held.String(), locked, i)
		if err != nil {
			return fmt.Errorf("finish run: client %d: %w", a.Client, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}
