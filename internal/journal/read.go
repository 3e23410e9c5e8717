package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xdelape/txproc/internal/engine"
	"github.com/xdelape/txproc/internal/ledger"
)

// ErrNoRuns is returned when the journal contains no recorded runs.
var ErrNoRuns = errors.New("journal contains no runs")

// Run describes one recorded processing run.
type Run struct {
	Token     string
	Input     string
	StartedAt time.Time
}

// ListRuns returns all recorded runs, oldest first.
// UUIDv7 tokens sort by creation time, but started_at is the recorded
// ordering so fixed test tokens list correctly too.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT token, input, started_at
		FROM runs
		ORDER BY started_at ASC, token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started run, or ErrNoRuns.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT token, input, started_at
		FROM runs
		ORDER BY started_at DESC, token DESC
		LIMIT 1
	`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var r Run
	var started string
	if err := s.Scan(&r.Token, &r.Input, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: started_at: %w", err)
	}
	r.StartedAt = ts
	return r, nil
}

// ReadDecisions returns a run's full decision stream in sequence order.
func (j *Journal) ReadDecisions(ctx context.Context, token string) ([]engine.Decision, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, op, client, tx, amount, status, code
		FROM decisions
		WHERE run_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// Trace returns every decision touching the given tx id within a run, in
// sequence order: the originating deposit/withdrawal plus each dispute
// lifecycle operation, accepted or rejected.
func (j *Journal) Trace(ctx context.Context, token string, tx uint32) ([]engine.Decision, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, op, client, tx, amount, status, code
		FROM decisions
		WHERE run_token = ? AND tx = ?
		ORDER BY seq ASC
	`, token, tx)
	if err != nil {
		return nil, fmt.Errorf("trace tx %d: %w", tx, err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func scanDecisions(rows *sql.Rows) ([]engine.Decision, error) {
	var out []engine.Decision
	for rows.Next() {
		var d engine.Decision
		var op, status string
		var amount, code sql.NullString
		if err := rows.Scan(&d.Seq, &op, &d.Client, &d.Tx, &amount, &status, &code); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Op = ledger.Op(op)
		d.Status = status
		if amount.Valid {
			a, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("scan decision: amount: %w", err)
			}
			d.Amount = a
		}
		if code.Valid {
			d.Code = ledger.RejectCode(code.String)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

// storedBalance is one row of a run's recorded final snapshot.
type storedBalance struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// readBalances returns a run's recorded snapshot in output order.
func (j *Journal) readBalances(ctx context.Context, token string) ([]storedBalance, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT client, available, held, locked
		FROM balances
		WHERE run_token = ?
		ORDER BY position ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read balances: %w", err)
	}
	defer rows.Close()

	var out []storedBalance
	for rows.Next() {
		var b storedBalance
		var available, held string
		var locked int
		if err := rows.Scan(&b.Client, &available, &held, &locked); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		if b.Available, err = decimal.NewFromString(available); err != nil {
			return nil, fmt.Errorf("scan balance: available: %w", err)
		}
		if b.Held, err = decimal.NewFromString(held); err != nil {
			return nil, fmt.Errorf("scan balance: held: %w", err)
		}
		b.Locked = locked != 0
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}
