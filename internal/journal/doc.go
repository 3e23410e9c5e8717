// Package journal provides an optional SQLite audit log for processing
// runs.
//
// Each run records every decision the engine made - accepted and rejected
// transactions alike, in sequence order - plus the final account balances.
// That makes the journal a complete, re-runnable copy of the input: the
// replay verifier feeds a run's decision stream through a fresh engine and
// checks that every outcome and the final balances come out identical.
//
// The journal is diagnostics, not persistence: account state is never
// loaded from it, and every processing run starts from an empty ledger.
//
// SQLite is configured for a single writer with WAL mode, matching the
// engine's strictly sequential decision stream. Decision writes use
// ON CONFLICT DO NOTHING so a re-recorded (run, seq) pair is idempotent.
package journal
