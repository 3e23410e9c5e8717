package harness

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xdelape/txproc/internal/engine"
	"github.com/xdelape/txproc/internal/ledger"
)

// Rejection is one observed rejection during a scenario run.
type Rejection struct {
	Seq    int64
	Tx     uint32
	Client uint16
	Code   ledger.RejectCode
}

// Result captures the outcome of running a scenario.
type Result struct {
	Scenario   *Scenario
	Rejections []Rejection
	Snapshot   []ledger.Account
}

// Run feeds the scenario's transaction stream through a fresh engine and
// returns the observed rejections and final snapshot.
//
// Run does not assert anything; pair it with Verify or RunWithGolden.
func Run(s *Scenario) (*Result, error) {
	store := ledger.NewStore()
	eng := engine.New(store)
	ctx := context.Background()

	result := &Result{Scenario: s}
	for i := range s.Transactions {
		t, err := s.Transactions[i].transaction()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := eng.Apply(ctx, t); err != nil {
			code, ok := ledger.CodeOf(err)
			if !ok {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			result.Rejections = append(result.Rejections, Rejection{
				Seq:    int64(i + 1),
				Tx:     t.Tx,
				Client: t.Client,
				Code:   code,
			})
		}
	}

	result.Snapshot = store.Snapshot()
	return result, nil
}

// Verify checks a result against the scenario's expectations.
// Returns every mismatch rather than stopping at the first.
func Verify(result *Result) []error {
	var errs []error
	expect := result.Scenario.Expect

	if len(expect.Rejections) != len(result.Rejections) {
		errs = append(errs, fmt.Errorf("expected %d rejections, got %d (%+v)",
			len(expect.Rejections), len(result.Rejections), result.Rejections))
	} else {
		for i, want := range expect.Rejections {
			got := result.Rejections[i]
			if want.Tx != got.Tx || ledger.RejectCode(want.Code) != got.Code {
				errs = append(errs, fmt.Errorf("rejection %d: expected tx=%d code=%s, got tx=%d code=%s",
					i+1, want.Tx, want.Code, got.Tx, got.Code))
			}
		}
	}

	if len(expect.Accounts) != len(result.Snapshot) {
		errs = append(errs, fmt.Errorf("expected %d accounts, got %d",
			len(expect.Accounts), len(result.Snapshot)))
		return errs
	}

	byClient := make(map[uint16]*ledger.Account, len(result.Snapshot))
	for i := range result.Snapshot {
		byClient[result.Snapshot[i].Client] = &result.Snapshot[i]
	}
	for _, want := range expect.Accounts {
		got, ok := byClient[want.Client]
		if !ok {
			errs = append(errs, fmt.Errorf("client %d: no final account", want.Client))
			continue
		}
		errs = append(errs, diffAccount(&want, got)...)
	}

	return errs
}

func diffAccount(want *ExpectedAccount, got *ledger.Account) []error {
	var errs []error

	check := func(field, wantStr string, gotVal decimal.Decimal) {
		wantVal, err := decimal.NewFromString(wantStr)
		if err != nil {
			errs = append(errs, fmt.Errorf("client %d: bad expected %s %q: %w", want.Client, field, wantStr, err))
			return
		}
		if !wantVal.Equal(gotVal) {
			errs = append(errs, fmt.Errorf("client %d: %s: expected %s, got %s",
				want.Client, field, wantVal, gotVal))
		}
	}
	check("available", want.Available, got.Available)
	check("held", want.Held, got.Held)
	check("total", want.Total, got.Total())
	if want.Locked != got.Locked {
		errs = append(errs, fmt.Errorf("client %d: locked: expected %t, got %t",
			want.Client, want.Locked, got.Locked))
	}
	return errs
}
