// Package ledger holds the domain model for the transaction processor:
// client accounts, stored deposit/withdrawal records, the dispute
// lifecycle, and the in-memory Store that owns both.
//
// DATA MODEL:
//
// Accounts are keyed by client id and created lazily on first reference.
// Each account tracks available and held funds as fixed-point decimals;
// total is always derived (available + held), never stored.
//
// Records exist only for accepted deposits and withdrawals. Dispute,
// resolve, and chargeback are operations on an existing record's dispute
// state - they never create records and never carry their own amount.
//
// Dispute lifecycle per record:
//
//	None --dispute--> Disputed --resolve-->   Resolved    (terminal)
//	                  Disputed --chargeback-> ChargedBack (terminal, locks account)
//
// A record can be disputed at most once. Resolved does NOT re-enter the
// disputable state; a second dispute is rejected with InvalidState. This is
// a deliberate policy choice, not an accident of implementation.
//
// The Store is an explicitly owned value passed into the engine's
// processing calls. It is not safe for concurrent use; the engine applies
// transactions strictly sequentially.
package ledger
