package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the fixed-point precision of all monetary amounts.
// Input amounts are truncated (not rounded) to this many fractional
// digits, and output rendering uses exactly this many digits.
const AmountPlaces = 4

// Op identifies one of the five wire operations.
type Op string

const (
	OpDeposit    Op = "deposit"
	OpWithdrawal Op = "withdrawal"
	OpDispute    Op = "dispute"
	OpResolve    Op = "resolve"
	OpChargeback Op = "chargeback"
)

// ParseOp converts a wire type name into an Op.
// Matching is case-insensitive; surrounding whitespace is ignored.
func ParseOp(s string) (Op, error) {
	switch Op(strings.ToLower(strings.TrimSpace(s))) {
	case OpDeposit:
		return OpDeposit, nil
	case OpWithdrawal:
		return OpWithdrawal, nil
	case OpDispute:
		return OpDispute, nil
	case OpResolve:
		return OpResolve, nil
	case OpChargeback:
		return OpChargeback, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// HasAmount reports whether the operation carries an amount on the wire.
// Dispute, resolve, and chargeback reference a prior record's amount and
// never carry their own.
func (o Op) HasAmount() bool {
	return o == OpDeposit || o == OpWithdrawal
}

// Kind is the kind of a stored record. Only deposits and withdrawals are
// stored; the dispute family mutates existing records.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

// DisputeState tracks where a stored record is in its dispute lifecycle.
type DisputeState string

const (
	DisputeNone        DisputeState = "none"
	DisputeDisputed    DisputeState = "disputed"
	DisputeResolved    DisputeState = "resolved"
	DisputeChargedBack DisputeState = "charged_back"
)

// Transaction is one parsed input row, as handed to the engine by the
// external record source. Amount is meaningful only when Op.HasAmount().
type Transaction struct {
	Op     Op
	Client uint16
	Tx     uint32
	Amount decimal.Decimal
}

// Account is the mutable per-client state.
type Account struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// Total returns available + held. It is derived on demand and never
// stored, so the invariant total == available + held cannot drift.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Record is an accepted deposit or withdrawal, immutable once stored
// except for its dispute state.
type Record struct {
	Tx      uint32
	Client  uint16
	Kind    Kind
	Amount  decimal.Decimal
	Dispute DisputeState
}

// Truncate clips d to AmountPlaces fractional digits without rounding.
// 5.37895 becomes 5.3789, matching the input precision contract.
func Truncate(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(AmountPlaces)
}
