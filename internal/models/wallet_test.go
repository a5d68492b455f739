package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWalletIsLowBalance(t *testing.T) {
	w := WalletDB{
		Balance:             decimal.NewFromInt(100),
		LowBalanceThreshold: decimal.NewFromInt(50),
	}
	assert.False(t, w.IsLowBalance())

	w.Balance = decimal.NewFromInt(50)
	assert.True(t, w.IsLowBalance())

	w.Balance = decimal.NewFromInt(49)
	assert.True(t, w.IsLowBalance())
}

func TestWalletHasSufficientBalance(t *testing.T) {
	w := WalletDB{Balance: decimal.NewFromInt(100)}

	assert.True(t, w.HasSufficientBalance(decimal.NewFromInt(100)))
	assert.True(t, w.HasSufficientBalance(decimal.NewFromFloat(0.01)))
	assert.False(t, w.HasSufficientBalance(decimal.NewFromFloat(100.01)))
	assert.False(t, w.HasSufficientBalance(decimal.Zero))
	assert.False(t, w.HasSufficientBalance(decimal.NewFromInt(-10)))
}
