package models

import "time"

// TransactionFilter narrows transaction history reads. Zero values mean
// "no restriction" for the corresponding field.
type TransactionFilter struct {
	Types    []TransactionType
	Statuses []TransactionStatus
	FromDate time.Time
	ToDate   time.Time
}
