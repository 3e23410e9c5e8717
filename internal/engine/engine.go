package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/xdelape/txproc/internal/ledger"
)

// Decision statuses recorded for every processed transaction.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Decision is the outcome of applying one transaction. Accepted and
// rejected transactions both produce a decision, so the journaled stream
// is a complete re-runnable copy of the input.
type Decision struct {
	Seq    int64
	Op     ledger.Op
	Client uint16
	Tx     uint32
	Amount decimal.Decimal // zero for the dispute family
	Status string
	Code   ledger.RejectCode // empty when accepted
}

// Transaction reconstructs the input transaction this decision was made
// for. Used by replay verification.
func (d Decision) Transaction() ledger.Transaction {
	return ledger.Transaction{
		Op:     d.Op,
		Client: d.Client,
		Tx:     d.Tx,
		Amount: d.Amount,
	}
}

// DecisionRecorder receives every decision in sequence order.
// Implemented by journal.RunRecorder; a nil recorder disables recording.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, d Decision) error
}

// Engine applies transactions to an explicitly owned ledger store.
//
// The store is passed in at construction rather than held as ambient
// state, which keeps the core testable in isolation and leaves the door
// open to per-client partitioning.
type Engine struct {
	store    *ledger.Store
	clock    *Clock
	log      *slog.Logger
	recorder DecisionRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithRecorder attaches an audit recorder. Recorder failures are fatal to
// the run (the journal would be incomplete), unlike per-transaction
// rejections which are not.
func WithRecorder(r DecisionRecorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New creates an Engine over the given store.
func New(store *ledger.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: NewClock(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply processes a single transaction against the store.
//
// Returns a *ledger.RejectionError (detectable via ledger.IsRejection)
// when the transaction is rejected; the store is left exactly as it was.
// Any other non-nil error is fatal to the run (recorder failure or an
// unknown operation from a misbehaving parser).
func (e *Engine) Apply(ctx context.Context, t ledger.Transaction) error {
	var rej *ledger.RejectionError

	switch t.Op {
	case ledger.OpDeposit:
		rej = e.deposit(t)
	case ledger.OpWithdrawal:
		rej = e.withdraw(t)
	case ledger.OpDispute:
		rej = e.dispute(t)
	case ledger.OpResolve:
		rej = e.resolve(t)
	case ledger.OpChargeback:
		rej = e.chargeback(t)
	default:
		return fmt.Errorf("unknown operation %q (tx=%d)", t.Op, t.Tx)
	}

	d := Decision{
		Seq:    e.clock.Next(),
		Op:     t.Op,
		Client: t.Client,
		Tx:     t.Tx,
		Status: StatusAccepted,
	}
	if t.Op.HasAmount() {
		d.Amount = t.Amount
	}
	if rej != nil {
		d.Status = StatusRejected
		d.Code = rej.Code
		e.log.Debug("transaction rejected",
			"seq", d.Seq, "op", t.Op, "client", t.Client, "tx", t.Tx, "code", rej.Code)
	}

	if e.recorder != nil {
		if err := e.recorder.RecordDecision(ctx, d); err != nil {
			return fmt.Errorf("record decision seq=%d: %w", d.Seq, err)
		}
	}

	if rej != nil {
		return rej
	}
	return nil
}

// Decisions returns how many transactions have been processed.
func (e *Engine) Decisions() int64 {
	return e.clock.Current()
}

// deposit credits available funds and stores the record.
func (e *Engine) deposit(t ledger.Transaction) *ledger.RejectionError {
	if t.Amount.Sign() <= 0 {
		return ledger.NewRejection(ledger.CodeInvalidAmount, t.Client, t.Tx,
			fmt.Sprintf("deposit amount must be positive, got %s", t.Amount))
	}
	acct := e.store.Account(t.Client)
	if acct.Locked {
		return ledger.NewRejection(ledger.CodeAccountLocked, t.Client, t.Tx,
			"deposit on locked account")
	}
	// Record before mutating so a duplicate tx id has no side effect.
	if err := e.store.Record(t.Tx, t.Client, ledger.KindDeposit, t.Amount); err != nil {
		return asRejection(err)
	}
	acct.Available = acct.Available.Add(t.Amount)
	return nil
}

// withdraw debits available funds and stores the record. Withdrawals are
// all-or-nothing: insufficient funds reject the whole transaction.
func (e *Engine) withdraw(t ledger.Transaction) *ledger.RejectionError {
	if t.Amount.Sign() <= 0 {
		return ledger.NewRejection(ledger.CodeInvalidAmount, t.Client, t.Tx,
			fmt.Sprintf("withdrawal amount must be positive, got %s", t.Amount))
	}
	acct := e.store.Account(t.Client)
	if acct.Locked {
		return ledger.NewRejection(ledger.CodeAccountLocked, t.Client, t.Tx,
			"withdrawal on locked account")
	}
	if acct.Available.LessThan(t.Amount) {
		return ledger.NewRejection(ledger.CodeInsufficientFunds, t.Client, t.Tx,
			fmt.Sprintf("available %s < withdrawal %s", acct.Available, t.Amount))
	}
	if err := e.store.Record(t.Tx, t.Client, ledger.KindWithdrawal, t.Amount); err != nil {
		return asRejection(err)
	}
	acct.Available = acct.Available.Sub(t.Amount)
	return nil
}

// dispute moves the referenced record's amount from available to held.
//
// The move is allowed to drive available negative: the disputed funds
// already exist as a completed deposit or withdrawal, so disputing a
// withdrawal re-reserves funds that were already spent.
func (e *Engine) dispute(t ledger.Transaction) *ledger.RejectionError {
	rec, acct, rej := e.referenced(t)
	if rej != nil {
		return rej
	}
	if rec.Dispute != ledger.DisputeNone {
		return ledger.NewRejection(ledger.CodeInvalidState, t.Client, t.Tx,
			fmt.Sprintf("cannot dispute a %s transaction", rec.Dispute))
	}
	acct.Available = acct.Available.Sub(rec.Amount)
	acct.Held = acct.Held.Add(rec.Amount)
	rec.Dispute = ledger.DisputeDisputed
	return nil
}

// resolve reverses a hold, releasing the disputed amount back to
// available. Resolved is terminal: the record cannot be disputed again.
func (e *Engine) resolve(t ledger.Transaction) *ledger.RejectionError {
	rec, acct, rej := e.referenced(t)
	if rej != nil {
		return rej
	}
	if rec.Dispute != ledger.DisputeDisputed {
		return ledger.NewRejection(ledger.CodeInvalidState, t.Client, t.Tx,
			fmt.Sprintf("cannot resolve a %s transaction", rec.Dispute))
	}
	acct.Held = acct.Held.Sub(rec.Amount)
	acct.Available = acct.Available.Add(rec.Amount)
	rec.Dispute = ledger.DisputeResolved
	return nil
}

// chargeback removes held funds entirely and locks the account. The lock
// is permanent: no later transaction mutates this account's balances.
func (e *Engine) chargeback(t ledger.Transaction) *ledger.RejectionError {
	rec, acct, rej := e.referenced(t)
	if rej != nil {
		return rej
	}
	if rec.Dispute != ledger.DisputeDisputed {
		return ledger.NewRejection(ledger.CodeInvalidState, t.Client, t.Tx,
			fmt.Sprintf("cannot charge back a %s transaction", rec.Dispute))
	}
	acct.Held = acct.Held.Sub(rec.Amount)
	rec.Dispute = ledger.DisputeChargedBack
	acct.Locked = true
	return nil
}

// referenced resolves the record and account a dispute-family operation
// targets, applying the shared checks: the record must exist, belong to
// the requesting client, and its account must not be locked.
func (e *Engine) referenced(t ledger.Transaction) (*ledger.Record, *ledger.Account, *ledger.RejectionError) {
	rec, err := e.store.Lookup(t.Tx)
	if err != nil {
		rej := asRejection(err)
		rej.Client = t.Client
		return nil, nil, rej
	}
	if rec.Client != t.Client {
		return nil, nil, ledger.NewRejection(ledger.CodeClientMismatch, t.Client, t.Tx,
			fmt.Sprintf("referenced transaction belongs to client %d", rec.Client))
	}
	acct := e.store.Account(rec.Client)
	if acct.Locked {
		return nil, nil, ledger.NewRejection(ledger.CodeAccountLocked, t.Client, t.Tx,
			fmt.Sprintf("%s on locked account", t.Op))
	}
	return rec, acct, nil
}

// asRejection converts a store error into a RejectionError.
// The store only fails with rejection-class errors; anything else would
// be a programming error worth crashing on.
func asRejection(err error) *ledger.RejectionError {
	var re *ledger.RejectionError
	if !errors.As(err, &re) {
		panic(fmt.Sprintf("store returned non-rejection error: %v", err))
	}
	return re
}
