package ledger

import (
	"errors"
	"fmt"
)

// RejectCode categorizes why a single transaction was rejected.
//
// Every rejection is recoverable at single-transaction granularity: the
// engine reports it and moves to the next record. There is no transient
// failure class in this domain, so nothing is ever retried.
type RejectCode string

const (
	// CodeInvalidAmount indicates a deposit/withdrawal amount <= 0.
	CodeInvalidAmount RejectCode = "INVALID_AMOUNT"

	// CodeAccountLocked indicates the account suffered a chargeback and
	// accepts no further mutating transactions.
	CodeAccountLocked RejectCode = "ACCOUNT_LOCKED"

	// CodeInsufficientFunds indicates a withdrawal exceeding available funds.
	CodeInsufficientFunds RejectCode = "INSUFFICIENT_FUNDS"

	// CodeDuplicateTransaction indicates a deposit/withdrawal reusing an
	// already-stored tx id. The first record's effect stands.
	CodeDuplicateTransaction RejectCode = "DUPLICATE_TRANSACTION"

	// CodeNotFound indicates a dispute/resolve/chargeback referencing an
	// unknown tx id.
	CodeNotFound RejectCode = "NOT_FOUND"

	// CodeClientMismatch indicates the referenced record belongs to a
	// different client than the request.
	CodeClientMismatch RejectCode = "CLIENT_MISMATCH"

	// CodeInvalidState indicates a dispute-family operation on a record
	// that is not in the expected dispute state.
	CodeInvalidState RejectCode = "INVALID_STATE"
)

// RejectionError reports why one transaction was not applied.
// No prior state is rolled back; a rejected transaction has no effect.
type RejectionError struct {
	Code    RejectCode
	Client  uint16
	Tx      uint32
	Message string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s (client=%d, tx=%d)", e.Code, e.Message, e.Client, e.Tx)
}

// NewRejection creates a RejectionError for the given transaction.
func NewRejection(code RejectCode, client uint16, tx uint32, message string) *RejectionError {
	return &RejectionError{Code: code, Client: client, Tx: tx, Message: message}
}

// CodeOf extracts the rejection code from an error.
// Returns false if the error is not a RejectionError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) (RejectCode, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

// IsRejection reports whether err is a per-transaction rejection, as
// opposed to a fatal error from the surrounding I/O.
func IsRejection(err error) bool {
	_, ok := CodeOf(err)
	return ok
}
