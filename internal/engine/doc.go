// Package engine implements the per-transaction decision procedure.
//
// The engine consumes one transaction at a time, in input order, validates
// it against the current ledger state, and either mutates the store or
// rejects the transaction. Rejections are recoverable per transaction: the
// caller reports them and continues with the next record, and nothing is
// rolled back.
//
// Processing is strictly sequential. Dispute validity depends on prior
// transaction state, so reordering would change outcomes. If throughput
// ever demands it, the only safe unit of parallelism is partitioning by
// client id with per-client order preserved; nothing here requires that.
//
// Every decision (accepted or rejected) is stamped with a monotonic
// sequence number and, when a recorder is attached, written to the audit
// journal. Replaying the journaled stream through a fresh engine must
// yield identical final account states - there is no randomness and no
// wall-clock dependency in the decision path.
package engine
