package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdelape/txproc/internal/engine"
	"github.com/xdelape/txproc/internal/ledger"
	"github.com/xdelape/txproc/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

// recordRun processes a transaction stream with the journal attached and
// returns the run token.
func recordRun(t *testing.T, j *Journal, token string, stream []ledger.Transaction) string {
	t.Helper()
	ctx := context.Background()

	rec, err := j.BeginRun(ctx, "test-input.csv", testutil.NewFixedGenerator(token))
	require.NoError(t, err)

	store := ledger.NewStore()
	eng := engine.New(store, engine.WithRecorder(rec))
	for _, tx := range stream {
		if err := eng.Apply(ctx, tx); err != nil {
			require.True(t, ledger.IsRejection(err), "unexpected fatal error: %v", err)
		}
	}
	require.NoError(t, rec.FinishRun(ctx, store.Snapshot()))
	return rec.Token()
}

func sampleStream() []ledger.Transaction {
	return []ledger.Transaction{
		{Op: ledger.OpDeposit, Client: 1, Tx: 1, Amount: dec("1.0")},
		{Op: ledger.OpDeposit, Client: 2, Tx: 2, Amount: dec("2.0")},
		{Op: ledger.OpWithdrawal, Client: 1, Tx: 3, Amount: dec("0.5")},
		{Op: ledger.OpWithdrawal, Client: 1, Tx: 4, Amount: dec("99.0")}, // rejected
		{Op: ledger.OpDispute, Client: 1, Tx: 1},
		{Op: ledger.OpResolve, Client: 1, Tx: 1},
		{Op: ledger.OpDispute, Client: 2, Tx: 2},
		{Op: ledger.OpChargeback, Client: 2, Tx: 2},
	}
}

func TestBeginRun_ListRuns(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	gen := testutil.NewSequenceGenerator("run")
	_, err := j.BeginRun(ctx, "a.csv", gen)
	require.NoError(t, err)
	_, err = j.BeginRun(ctx, "b.csv", gen)
	require.NoError(t, err)

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].Token)
	assert.Equal(t, "a.csv", runs[0].Input)
	assert.Equal(t, "run-2", runs[1].Token)

	latest, err := j.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.Token)
}

func TestLatestRun_Empty(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestReadDecisions_CompleteStreamInOrder(t *testing.T) {
	j := openTestJournal(t)
	token := recordRun(t, j, "run-read", sampleStream())

	decisions, err := j.ReadDecisions(context.Background(), token)
	require.NoError(t, err)
	require.Len(t, decisions, len(sampleStream()))

	for i, d := range decisions {
		assert.Equal(t, int64(i+1), d.Seq)
	}

	// The rejected withdrawal is in the stream with its code.
	rejected := decisions[3]
	assert.Equal(t, ledger.OpWithdrawal, rejected.Op)
	assert.Equal(t, engine.StatusRejected, rejected.Status)
	assert.Equal(t, ledger.CodeInsufficientFunds, rejected.Code)
	assert.True(t, rejected.Amount.Equal(dec("99.0")))

	// Dispute-family decisions carry no amount.
	assert.True(t, decisions[4].Amount.IsZero())
}

func TestRecordDecision_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	rec, err := j.BeginRun(ctx, "in.csv", testutil.NewFixedGenerator("run-idem"))
	require.NoError(t, err)

	d := engine.Decision{
		Seq: 1, Op: ledger.OpDeposit, Client: 1, Tx: 1,
		Amount: dec("1.0"), Status: engine.StatusAccepted,
	}
	require.NoError(t, rec.RecordDecision(ctx, d))
	require.NoError(t, rec.RecordDecision(ctx, d))

	decisions, err := j.ReadDecisions(ctx, "run-idem")
	require.NoError(t, err)
	assert.Len(t, decisions, 1)
}

func TestReplay_Deterministic(t *testing.T) {
	j := openTestJournal(t)
	token := recordRun(t, j, "run-replay", sampleStream())

	result, err := j.Replay(context.Background(), token)
	require.NoError(t, err)

	assert.True(t, result.Deterministic, "divergences: %+v", result.Divergences)
	assert.Equal(t, len(sampleStream()), result.Decisions)
	assert.Equal(t, 2, result.Accounts)
	assert.Empty(t, result.Divergences)
}

func TestReplay_DetectsTamperedBalances(t *testing.T) {
	j := openTestJournal(t)
	token := recordRun(t, j, "run-tampered", sampleStream())
	ctx := context.Background()

	_, err := j.db.ExecContext(ctx,
		"UPDATE balances SET available = '42' WHERE run_token = ? AND client = 1", token)
	require.NoError(t, err)

	result, err := j.Replay(ctx, token)
	require.NoError(t, err)
	assert.False(t, result.Deterministic)
	require.NotEmpty(t, result.Divergences)
	assert.Equal(t, "client 1 available", result.Divergences[0].Subject)
	assert.Equal(t, "42", result.Divergences[0].Want)
	assert.Equal(t, "0.5", result.Divergences[0].Got)
}

func TestReplay_DetectsTamperedDecision(t *testing.T) {
	j := openTestJournal(t)
	token := recordRun(t, j, "run-tampered-d", sampleStream())
	ctx := context.Background()

	// Flip the recorded outcome of the rejected withdrawal.
	_, err := j.db.ExecContext(ctx,
		"UPDATE decisions SET status = 'accepted', code = NULL WHERE run_token = ? AND seq = 4", token)
	require.NoError(t, err)

	result, err := j.Replay(ctx, token)
	require.NoError(t, err)
	assert.False(t, result.Deterministic)
}

func TestReplay_UnknownRun(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Replay(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestTrace_DisputeLifecycle(t *testing.T) {
	j := openTestJournal(t)
	token := recordRun(t, j, "run-trace", sampleStream())

	trace, err := j.Trace(context.Background(), token, 2)
	require.NoError(t, err)
	require.Len(t, trace, 3)

	assert.Equal(t, ledger.OpDeposit, trace[0].Op)
	assert.Equal(t, ledger.OpDispute, trace[1].Op)
	assert.Equal(t, ledger.OpChargeback, trace[2].Op)
	for _, d := range trace {
		assert.Equal(t, engine.StatusAccepted, d.Status)
	}
}

func TestTrace_UnknownTxIsEmpty(t *testing.T) {
	j := openTestJournal(t)
	token := recordRun(t, j, "run-trace-empty", sampleStream())

	trace, err := j.Trace(context.Background(), token, 999)
	require.NoError(t, err)
	assert.Empty(t, trace)
}
