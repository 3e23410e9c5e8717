// Package harness runs YAML-defined conformance scenarios against the
// transaction engine and compares rendered account output against golden
// files.
//
// Scenarios are data, not code: each YAML file lists a transaction
// stream, the rejections it should produce, and the final account states.
// Golden files hold the exact account CSV so output formatting is pinned
// down along with the balances.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shopspring/decimal"

	"github.com/xdelape/txproc/internal/ledger"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden file
	// base name.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Transactions is the input stream, applied in order.
	Transactions []Step `yaml:"transactions"`

	// Expect holds the assertions on rejections and final state.
	Expect Expectations `yaml:"expect"`
}

// Step is one input transaction. Amount is a decimal string and must be
// empty for the dispute family.
type Step struct {
	Op     string `yaml:"op"`
	Client uint16 `yaml:"client"`
	Tx     uint32 `yaml:"tx"`
	Amount string `yaml:"amount,omitempty"`
}

// Expectations asserts on the outcome of a scenario.
type Expectations struct {
	// Rejections lists expected rejections in processing order.
	// Scenarios with no expected rejections leave this empty.
	Rejections []ExpectedRejection `yaml:"rejections,omitempty"`

	// Accounts lists every expected final account state.
	Accounts []ExpectedAccount `yaml:"accounts"`
}

// ExpectedRejection is one expected rejection, matched by position.
type ExpectedRejection struct {
	Tx   uint32 `yaml:"tx"`
	Code string `yaml:"code"`
}

// ExpectedAccount is one expected final account state. Balances are
// decimal strings compared by value, so "0.5" matches "0.5000".
type ExpectedAccount struct {
	Client    uint16 `yaml:"client"`
	Available string `yaml:"available"`
	Held      string `yaml:"held"`
	Total     string `yaml:"total"`
	Locked    bool   `yaml:"locked"`
}

// transaction converts a step into an engine transaction.
func (s *Step) transaction() (ledger.Transaction, error) {
	op, err := ledger.ParseOp(s.Op)
	if err != nil {
		return ledger.Transaction{}, err
	}
	t := ledger.Transaction{Op: op, Client: s.Client, Tx: s.Tx}
	if op.HasAmount() {
		if s.Amount == "" {
			return ledger.Transaction{}, fmt.Errorf("%s tx %d: amount required", op, s.Tx)
		}
		amount, err := decimal.NewFromString(s.Amount)
		if err != nil {
			return ledger.Transaction{}, fmt.Errorf("%s tx %d: %w", op, s.Tx, err)
		}
		t.Amount = ledger.Truncate(amount)
	} else if s.Amount != "" {
		return ledger.Transaction{}, fmt.Errorf("%s tx %d: must not carry an amount", op, s.Tx)
	}
	return t, nil
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Transactions) == 0 {
		return nil, fmt.Errorf("scenario %s: transactions are required", path)
	}
	for i := range s.Transactions {
		if _, err := s.Transactions[i].transaction(); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d: %w", path, i+1, err)
		}
	}
	return &s, nil
}

// LoadScenarioDir loads every *.yaml scenario in a directory, sorted by
// file name for deterministic test ordering.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
