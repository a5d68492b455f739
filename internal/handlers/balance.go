package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/services"
)

// BalanceReader defines the interface that the service must implement.
type BalanceReader interface {
	GetBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, string, error)
}

// BalanceResponse represents a successful balance response
// swagger:model BalanceResponse
type BalanceResponse struct {
	// Current balance
	// example: 1000
	Balance decimal.Decimal `json:"balance"`

	// Wallet currency
	// example: USD
	Currency string `json:"currency"`
}

// BalanceErrorResponse represents an error response for balance reads
// swagger:model BalanceErrorResponse
type BalanceErrorResponse struct {
	// Error message
	// example: Wallet not found
	Error string `json:"error"`
}

// NewBalanceHandler returns an HTTP handler for reading a wallet balance.
// @Summary Get wallet balance
// @Description Return the wallet's current balance and currency.
// @Tags wallets
// @Produce json
// @Param walletID path string true "Wallet ID"
// @Success 200 {object} handlers.BalanceResponse "Current balance"
// @Failure 400 {object} handlers.BalanceErrorResponse "Invalid wallet ID"
// @Failure 404 {object} handlers.BalanceErrorResponse "Wallet not found"
// @Router /wallets/{walletID}/balance [get]
// @Security BearerAuth
func NewBalanceHandler(svc BalanceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		walletID, err := uuid.Parse(chi.URLParam(r, "walletID"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, BalanceErrorResponse{Error: "Invalid wallet ID format"})
			return
		}

		balance, currency, err := svc.GetBalance(ctx, walletID)
		if err != nil {
			if errors.Is(err, services.ErrWalletNotFound) {
				writeJSON(w, http.StatusNotFound, BalanceErrorResponse{Error: "Wallet not found"})
				return
			}
			logger.Log.Errorw("failed to get balance", "wallet_id", walletID, "error", err)
			writeJSON(w, http.StatusInternalServerError, BalanceErrorResponse{Error: "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance, Currency: currency})
	}
}
