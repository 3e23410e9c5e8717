package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Store owns the client-id -> account mapping and the tx-id -> record
// mapping. Records live in a growable arena indexed by tx id, so dispute
// lookups are O(1) rather than a scan of transaction history.
//
// Account iteration order is first-seen order. Output ordering carries no
// semantics, but keeping it deterministic makes runs reproducible and
// golden files stable.
type Store struct {
	accounts map[uint16]*Account
	order    []uint16 // clients in first-seen order

	records []Record
	index   map[uint32]int // tx id -> position in records
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uint16]*Account),
		index:    make(map[uint32]int),
	}
}

// Account returns the account for the given client, creating a
// zero-balance unlocked account on first reference. There is no error
// condition; accounts live until process end.
func (s *Store) Account(client uint16) *Account {
	if acct, ok := s.accounts[client]; ok {
		return acct
	}
	acct := &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
	s.accounts[client] = acct
	s.order = append(s.order, client)
	return acct
}

// Record stores a new deposit/withdrawal record in the undisputed state.
// Rejects with DuplicateTransaction if the tx id was already stored; the
// caller must not have mutated any account state before this check.
func (s *Store) Record(tx uint32, client uint16, kind Kind, amount decimal.Decimal) error {
	if _, ok := s.index[tx]; ok {
		return NewRejection(CodeDuplicateTransaction, client, tx,
			fmt.Sprintf("tx id already recorded by a prior %s", s.records[s.index[tx]].Kind))
	}
	s.index[tx] = len(s.records)
	s.records = append(s.records, Record{
		Tx:      tx,
		Client:  client,
		Kind:    kind,
		Amount:  amount,
		Dispute: DisputeNone,
	})
	return nil
}

// Lookup returns the stored record for a tx id, or NotFound.
// The returned pointer aliases the arena and is valid until the next call
// to Record; callers mutate Dispute through it and must not retain it.
func (s *Store) Lookup(tx uint32) (*Record, error) {
	pos, ok := s.index[tx]
	if !ok {
		return nil, NewRejection(CodeNotFound, 0, tx, "referenced transaction not found")
	}
	return &s.records[pos], nil
}

// Len returns the number of known accounts.
func (s *Store) Len() int {
	return len(s.order)
}

// Snapshot returns a copy of every account in first-seen client order.
// Used to drain the store into the output sink once the input stream is
// exhausted.
func (s *Store) Snapshot() []Account {
	out := make([]Account, 0, len(s.order))
	for _, client := range s.order {
		out = append(out, *s.accounts[client])
	}
	return out
}
