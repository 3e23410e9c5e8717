package journal

import (
	"context"
	"fmt"

	"github.com/xdelape/txproc/internal/engine"
	"github.com/xdelape/txproc/internal/ledger"
)

// Divergence is one difference found between a recorded run and its
// replay. Any divergence means the run was not reproduced.
type Divergence struct {
	Seq     int64  `json:"seq,omitempty"` // 0 for snapshot divergences
	Subject string `json:"subject"`       // e.g. "status", "code", "balance.available"
	Want    string `json:"want"`
	Got     string `json:"got"`
}

// ReplayResult summarizes replay verification for one run.
type ReplayResult struct {
	Token         string       `json:"token"`
	Decisions     int          `json:"decisions"`
	Accounts      int          `json:"accounts"`
	Deterministic bool         `json:"deterministic"`
	Divergences   []Divergence `json:"divergences,omitempty"`
}

// Replay re-applies a run's recorded decision stream through a fresh
// engine and verifies that every per-transaction outcome and the final
// account snapshot match what was recorded.
//
// The journaled stream includes rejected transactions, so it is a
// complete copy of the original input; a clean replay demonstrates the
// idempotence property: same stream in, same state out.
func (j *Journal) Replay(ctx context.Context, token string) (*ReplayResult, error) {
	decisions, err := j.ReadDecisions(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, fmt.Errorf("run %s has no recorded decisions", token)
	}

	result := &ReplayResult{Token: token, Decisions: len(decisions)}

	store := ledger.NewStore()
	eng := engine.New(store)

	for _, want := range decisions {
		err := eng.Apply(ctx, want.Transaction())

		gotStatus := engine.StatusAccepted
		var gotCode ledger.RejectCode
		if err != nil {
			code, ok := ledger.CodeOf(err)
			if !ok {
				return nil, fmt.Errorf("replay seq %d: %w", want.Seq, err)
			}
			gotStatus = engine.StatusRejected
			gotCode = code
		}

		if gotStatus != want.Status {
			result.Divergences = append(result.Divergences, Divergence{
				Seq: want.Seq, Subject: "status", Want: want.Status, Got: gotStatus,
			})
		}
		if gotCode != want.Code {
			result.Divergences = append(result.Divergences, Divergence{
				Seq: want.Seq, Subject: "code", Want: string(want.Code), Got: string(gotCode),
			})
		}
	}

	recorded, err := j.readBalances(ctx, token)
	if err != nil {
		return nil, err
	}
	result.Accounts = len(recorded)
	result.Divergences = append(result.Divergences, diffSnapshot(recorded, store.Snapshot())...)

	result.Deterministic = len(result.Divergences) == 0
	return result, nil
}

// diffSnapshot compares the recorded snapshot against the replayed one,
// including output ordering.
func diffSnapshot(recorded []storedBalance, replayed []ledger.Account) []Divergence {
	var divs []Divergence

	if len(recorded) != len(replayed) {
		divs = append(divs, Divergence{
			Subject: "accounts",
			Want:    fmt.Sprintf("%d", len(recorded)),
			Got:     fmt.Sprintf("%d", len(replayed)),
		})
		return divs
	}

	for i := range recorded {
		want := &recorded[i]
		got := &replayed[i]
		prefix := fmt.Sprintf("client %d", want.Client)

		if want.Client != got.Client {
			divs = append(divs, Divergence{
				Subject: fmt.Sprintf("position %d", i),
				Want:    fmt.Sprintf("client %d", want.Client),
				Got:     fmt.Sprintf("client %d", got.Client),
			})
			continue
		}
		if !want.Available.Equal(got.Available) {
			divs = append(divs, Divergence{
				Subject: prefix + " available",
				Want:    want.Available.String(),
				Got:     got.Available.String(),
			})
		}
		if !want.Held.Equal(got.Held) {
			divs = append(divs, Divergence{
				Subject: prefix + " held",
				Want:    want.Held.String(),
				Got:     got.Held.String(),
			})
		}
		if want.Locked != got.Locked {
			divs = append(divs, Divergence{
				Subject: prefix + " locked",
				Want:    fmt.Sprintf("%t", want.Locked),
				Got:     fmt.Sprintf("%t", got.Locked),
			})
		}
	}

	return divs
}
