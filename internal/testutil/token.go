// Package testutil provides deterministic helpers shared across test
// suites.
package testutil

import (
	"fmt"
	"sync"
)

// FixedGenerator always returns the same run token.
//
// Journals written with a fixed token are byte-stable across test runs,
// which keeps golden comparisons and replay assertions deterministic.
// Implements journal.TokenGenerator.
type FixedGenerator struct {
	token string
}

// NewFixedGenerator creates a generator returning token on every call.
// An empty token defaults to "test-run-default".
func NewFixedGenerator(token string) *FixedGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedGenerator) Generate() string {
	return g.token
}

// SequenceGenerator returns "run-1", "run-2", ... for tests that record
// several runs into one journal.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a sequence generator with the given
// prefix; an empty prefix defaults to "run".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
