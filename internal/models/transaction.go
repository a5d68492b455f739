package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of balance mutation a transaction requests.
type TransactionType string

// TransactionStatus represents the current processing state of a transaction.
type TransactionStatus string

// Supported transaction types.
const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeRefund TransactionType = "REFUND"
)

// Transaction statuses.
const (
	TransactionStatusInitiated  TransactionStatus = "INITIATED"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusReversed   TransactionStatus = "REVERSED"
)

// Idempotency key length bounds.
const (
	IdempotencyKeyMinLen = 8
	IdempotencyKeyMaxLen = 64
)

// Domain validation errors.
var (
	ErrInvalidTransactionType   = errors.New("invalid transaction type")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrInvalidAmount            = errors.New("invalid transaction amount")
	ErrInvalidCurrency          = errors.New("invalid currency code")
	ErrInvalidIdempotencyKey    = errors.New("idempotency key must be 8-64 characters")
	ErrInvalidStateTransition   = errors.New("invalid transaction state transition")
)

// TransactionDB represents an append-only transaction row in the database.
type TransactionDB struct {
	TransactionID  uuid.UUID         `json:"transaction_id" db:"transaction_id"`
	WalletID       uuid.UUID         `json:"wallet_id" db:"wallet_id"`
	Type           TransactionType   `json:"type" db:"type"`
	Status         TransactionStatus `json:"status" db:"status"`
	Amount         decimal.Decimal   `json:"amount" db:"amount"`
	Currency       string            `json:"currency" db:"currency"`
	IdempotencyKey string            `json:"idempotency_key" db:"idempotency_key"`
	Description    string            `json:"description" db:"description"`
	ReferenceID    *uuid.UUID        `json:"reference_id,omitempty" db:"reference_id"` // Originating transaction, set for refunds
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// ParseTransactionType converts a wire string into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionTypeCredit, TransactionTypeDebit, TransactionTypeRefund:
		return TransactionType(s), nil
	}
	return "", ErrInvalidTransactionType
}

// ParseTransactionStatus converts a wire string into a TransactionStatus.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(s) {
	case TransactionStatusInitiated, TransactionStatusProcessing,
		TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusReversed:
		return TransactionStatus(s), nil
	}
	return "", ErrInvalidTransactionStatus
}

// IsTerminal reports whether no further transition is permitted from the status,
// except the explicit COMPLETED -> REVERSED compensating path.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusReversed:
		return true
	}
	return false
}

// transitions is the closed set of permitted status transitions.
// COMPLETED -> REVERSED is only ever driven by a separately requested
// compensating refund, never automatically.
var transitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusInitiated:  {TransactionStatusProcessing},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted:  {TransactionStatusReversed},
	TransactionStatusFailed:     {},
	TransactionStatusReversed:   {},
}

// CanTransition reports whether moving from one status to another is permitted.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change on the transaction.
func (t *TransactionDB) Transition(to TransactionStatus) error {
	if !CanTransition(t.Status, to) {
		return ErrInvalidStateTransition
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate checks the transaction fields against the domain rules.
func (t *TransactionDB) Validate() error {
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	if _, err := ParseTransactionStatus(string(t.Status)); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if len(t.IdempotencyKey) < IdempotencyKeyMinLen || len(t.IdempotencyKey) > IdempotencyKeyMaxLen {
		return ErrInvalidIdempotencyKey
	}
	return nil
}
