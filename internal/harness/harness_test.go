package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_VerifyAndGolden(t *testing.T) {
	scenarios, err := LoadScenarioDir("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios, "no scenarios found in testdata")

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)

			for _, verr := range Verify(result) {
				t.Error(verr)
			}

			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestRun_CollectsRejectionsInOrder(t *testing.T) {
	s := &Scenario{
		Name: "inline",
		Transactions: []Step{
			{Op: "deposit", Client: 1, Tx: 1, Amount: "1.0"},
			{Op: "withdrawal", Client: 1, Tx: 2, Amount: "9.0"},
			{Op: "dispute", Client: 1, Tx: 7},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Rejections, 2)
	assert.Equal(t, uint32(2), result.Rejections[0].Tx)
	assert.Equal(t, "INSUFFICIENT_FUNDS", string(result.Rejections[0].Code))
	assert.Equal(t, uint32(7), result.Rejections[1].Tx)
	assert.Equal(t, "NOT_FOUND", string(result.Rejections[1].Code))
}

func TestVerify_ReportsMismatches(t *testing.T) {
	s := &Scenario{
		Name: "mismatch",
		Transactions: []Step{
			{Op: "deposit", Client: 1, Tx: 1, Amount: "1.0"},
		},
		Expect: Expectations{
			Accounts: []ExpectedAccount{
				{Client: 1, Available: "2.0", Held: "0", Total: "2.0", Locked: false},
			},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	errs := Verify(result)
	require.Len(t, errs, 2) // available and total both wrong
	assert.Contains(t, errs[0].Error(), "available")
}

func TestVerify_EquivalentDecimalStringsMatch(t *testing.T) {
	s := &Scenario{
		Name: "precision",
		Transactions: []Step{
			{Op: "deposit", Client: 1, Tx: 1, Amount: "1.5"},
		},
		Expect: Expectations{
			Accounts: []ExpectedAccount{
				// "1.5000" and "1.5" are the same value.
				{Client: 1, Available: "1.5000", Held: "0.0000", Total: "1.5000", Locked: false},
			},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Empty(t, Verify(result))
}

func TestLoadScenario_RejectsBadSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "name: bad\ntransactions:\n  - op: deposit\n    client: 1\n    tx: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount required")
}

func TestLoadScenario_RejectsAmountOnDispute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "name: bad\ntransactions:\n  - op: dispute\n    client: 1\n    tx: 1\n    amount: \"2.0\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not carry an amount")
}
