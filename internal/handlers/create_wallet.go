package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/services"
)

// WalletCreator defines the interface that the service must implement.
type WalletCreator interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string, lowBalanceThreshold decimal.Decimal) (*models.WalletDB, error)
}

// CreateWalletRequest represents the JSON body for provisioning a wallet
// swagger:model CreateWalletRequest
type CreateWalletRequest struct {
	// Owner identifier
	// required: true
	OwnerID uuid.UUID `json:"owner_id"`

	// ISO 4217 currency code, immutable after creation
	// required: true
	// example: USD
	Currency string `json:"currency"`

	// Balance at or below which low-balance alerts fire
	// example: 100
	LowBalanceThreshold decimal.Decimal `json:"low_balance_threshold"`
}

// CreateWalletResponse represents a successful provisioning response
// swagger:model CreateWalletResponse
type CreateWalletResponse struct {
	Wallet *models.WalletDB `json:"wallet"`
}

// CreateWalletErrorResponse represents an error response for wallet provisioning
// swagger:model CreateWalletErrorResponse
type CreateWalletErrorResponse struct {
	// Error message
	// example: Wallet already exists for owner
	Error string `json:"error"`
}

// NewCreateWalletHandler returns an HTTP handler for provisioning a wallet.
// @Summary Create wallet
// @Description Provision a new wallet for an owner with a zero balance.
// @Tags wallets
// @Accept json
// @Produce json
// @Param request body handlers.CreateWalletRequest true "Create Wallet Request"
// @Success 201 {object} handlers.CreateWalletResponse "Wallet created"
// @Failure 400 {object} handlers.CreateWalletErrorResponse "Invalid request"
// @Failure 409 {object} handlers.CreateWalletErrorResponse "Wallet already exists"
// @Router /wallets [post]
// @Security BearerAuth
func NewCreateWalletHandler(svc WalletCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req CreateWalletRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode create wallet request", "error", err)
			writeJSON(w, http.StatusBadRequest, CreateWalletErrorResponse{Error: "Invalid request body"})
			return
		}
		if req.OwnerID == uuid.Nil {
			writeJSON(w, http.StatusBadRequest, CreateWalletErrorResponse{Error: "Owner ID is required"})
			return
		}

		wallet, err := svc.CreateWallet(ctx, req.OwnerID, req.Currency, req.LowBalanceThreshold)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidCurrency), errors.Is(err, models.ErrInvalidAmount):
				writeJSON(w, http.StatusBadRequest, CreateWalletErrorResponse{Error: "Invalid currency or threshold"})
			case errors.Is(err, services.ErrWalletAlreadyExists):
				writeJSON(w, http.StatusConflict, CreateWalletErrorResponse{Error: "Wallet already exists for owner"})
			default:
				logger.Log.Errorw("failed to create wallet", "owner_id", req.OwnerID, "error", err)
				writeJSON(w, http.StatusInternalServerError, CreateWalletErrorResponse{Error: "Internal server error"})
			}
			return
		}

		writeJSON(w, http.StatusCreated, CreateWalletResponse{Wallet: wallet})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
