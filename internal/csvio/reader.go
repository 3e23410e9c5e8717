package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xdelape/txproc/internal/ledger"
)

// Input column positions. The header row is skipped; columns are
// positional, matching the wire format type,client,tx,amount.
const (
	colType = iota
	colClient
	colTx
	colAmount
)

// RowError marks a single malformed input row. Rows that fail to parse
// are reported and skipped; they never abort the run.
type RowError struct {
	Line int
	Err  error
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *RowError) Unwrap() error {
	return e.Err
}

// IsRowError reports whether err is a skippable per-row parse failure.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// Reader decodes transactions from CSV, one row per call.
type Reader struct {
	csv    *csv.Reader
	line   int
	header bool
}

// NewReader creates a transaction reader over r.
// The underlying CSV reader is flexible: rows may have differing field
// counts and extra trailing fields are ignored.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr}
}

// Read returns the next transaction in the stream.
//
// Returns io.EOF at end of input, a *RowError for a malformed row (the
// caller should report and continue), and any other error for a
// structural failure that is fatal to the run.
func (r *Reader) Read() (ledger.Transaction, error) {
	if !r.header {
		if _, err := r.csv.Read(); err != nil {
			if err == io.EOF {
				return ledger.Transaction{}, io.EOF
			}
			return ledger.Transaction{}, fmt.Errorf("read header: %w", err)
		}
		r.header = true
		r.line = 1
	}

	fields, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return ledger.Transaction{}, io.EOF
		}
		return ledger.Transaction{}, fmt.Errorf("read row: %w", err)
	}
	r.line++

	t, err := r.parseRow(fields)
	if err != nil {
		return ledger.Transaction{}, &RowError{Line: r.line, Err: err}
	}
	return t, nil
}

func (r *Reader) parseRow(fields []string) (ledger.Transaction, error) {
	if len(fields) <= colTx {
		return ledger.Transaction{}, fmt.Errorf("expected at least %d fields, got %d", colTx+1, len(fields))
	}

	op, err := ledger.ParseOp(fields[colType])
	if err != nil {
		return ledger.Transaction{}, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(fields[colClient]), 10, 16)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("client id: %w", err)
	}

	tx, err := strconv.ParseUint(strings.TrimSpace(fields[colTx]), 10, 32)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("tx id: %w", err)
	}

	t := ledger.Transaction{
		Op:     op,
		Client: uint16(client),
		Tx:     uint32(tx),
	}

	// The dispute family references a prior record's amount; anything in
	// the amount column is ignored, matching the forgiving input format.
	if !op.HasAmount() {
		return t, nil
	}

	if len(fields) <= colAmount || strings.TrimSpace(fields[colAmount]) == "" {
		return ledger.Transaction{}, fmt.Errorf("%s requires an amount", op)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(fields[colAmount]))
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	t.Amount = ledger.Truncate(amount)
	return t, nil
}
