package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletDB represents a wallet row in the database.
type WalletDB struct {
	WalletID            uuid.UUID       `json:"wallet_id" db:"wallet_id"`                         // Unique wallet identifier
	OwnerID             uuid.UUID       `json:"owner_id" db:"owner_id"`                           // Identifier of the wallet's owner
	Balance             decimal.Decimal `json:"balance" db:"balance"`                             // Current balance
	Currency            string          `json:"currency" db:"currency"`                           // ISO 4217 currency code, immutable after creation
	LowBalanceThreshold decimal.Decimal `json:"low_balance_threshold" db:"low_balance_threshold"` // Alerting threshold
	Version             int64           `json:"version" db:"version"`                             // Optimistic concurrency token
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// IsLowBalance reports whether the balance is at or below the configured threshold.
func (w *WalletDB) IsLowBalance() bool {
	return w.Balance.LessThanOrEqual(w.LowBalanceThreshold)
}

// HasSufficientBalance reports whether the wallet can cover a debit of amount.
func (w *WalletDB) HasSufficientBalance(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return w.Balance.GreaterThanOrEqual(amount)
}
