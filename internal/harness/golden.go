package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/xdelape/txproc/internal/csvio"
)

// RunWithGolden executes a scenario and compares the rendered account CSV
// against the golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The golden file pins both the balances and the output formatting
// (column order, fixed four-digit precision, first-seen row order).
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := csvio.WriteAccounts(&buf, result.Snapshot); err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, buf.Bytes())
	return nil
}
