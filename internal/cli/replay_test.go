package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_AfterProcess(t *testing.T) {
	input := writeInput(t, sampleCSV)
	journalPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := execute(t, "process", input, "--journal", journalPath)
	require.NoError(t, err)

	out, _, err := execute(t, "replay", "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, out, "deterministic")
	assert.Contains(t, out, "7 decisions")
}

func TestReplay_JSONFormat(t *testing.T) {
	input := writeInput(t, sampleCSV)
	journalPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := execute(t, "process", input, "--journal", journalPath)
	require.NoError(t, err)

	out, _, err := execute(t, "replay", "--journal", journalPath, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"all_deterministic": true`)
	assert.Contains(t, out, `"decisions": 7`)
}

func TestReplay_EmptyJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "audit.db")

	// Opening for replay creates an empty journal; no runs to verify.
	out, _, err := execute(t, "replay", "--journal", journalPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found")
}

func TestReplay_UnknownRunToken(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "audit.db")
	input := writeInput(t, sampleCSV)

	_, _, err := execute(t, "process", input, "--journal", journalPath)
	require.NoError(t, err)

	_, _, err = execute(t, "replay", "--journal", journalPath, "--run", "no-such-token")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_DisputeLifecycle(t *testing.T) {
	input := writeInput(t, sampleCSV)
	journalPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := execute(t, "process", input, "--journal", journalPath)
	require.NoError(t, err)

	// tx 2: deposit, dispute, chargeback - traced from the latest run.
	out, _, err := execute(t, "trace", "--journal", journalPath, "--tx", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "deposit")
	assert.Contains(t, out, "dispute")
	assert.Contains(t, out, "chargeback")
	assert.Contains(t, out, "amount=2")
}

func TestTrace_UnknownTx(t *testing.T) {
	input := writeInput(t, sampleCSV)
	journalPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := execute(t, "process", input, "--journal", journalPath)
	require.NoError(t, err)

	out, _, err := execute(t, "trace", "--journal", journalPath, "--tx", "999")
	require.NoError(t, err)
	assert.Contains(t, out, "no decisions")
}

func TestTrace_EmptyJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := execute(t, "trace", "--journal", journalPath, "--tx", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
