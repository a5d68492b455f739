package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/services"
)

// TransactionApplier defines the interface that the processor must implement.
type TransactionApplier interface {
	Process(ctx context.Context, req services.TransactionRequest) (*models.TransactionDB, error)
}

// TransactionRequestBody represents the JSON body for submitting a transaction.
// The idempotency key travels in the Idempotency-Key header.
// swagger:model TransactionRequestBody
type TransactionRequestBody struct {
	// Transaction type: CREDIT, DEBIT or REFUND
	// required: true
	// example: DEBIT
	Type string `json:"type"`

	// Amount, must be positive
	// required: true
	// example: 100
	Amount decimal.Decimal `json:"amount"`

	// Currency, must equal the wallet currency
	// required: true
	// example: USD
	Currency string `json:"currency"`

	// Free-form description
	Description string `json:"description"`

	// Originating transaction, required for REFUND
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
}

// TransactionResponse represents a processed transaction
// swagger:model TransactionResponse
type TransactionResponse struct {
	Transaction *models.TransactionDB `json:"transaction"`
}

// TransactionErrorResponse represents an error response for transaction processing
// swagger:model TransactionErrorResponse
type TransactionErrorResponse struct {
	// Error message
	// example: Insufficient balance
	Error string `json:"error"`

	// Persisted transaction record, present when the failure was recorded
	Transaction *models.TransactionDB `json:"transaction,omitempty"`
}

// NewTransactionHandler returns an HTTP handler for applying a transaction to a wallet.
// @Summary Submit transaction
// @Description Apply a CREDIT, DEBIT or REFUND to a wallet. Repeated submissions with the same Idempotency-Key return the original result.
// @Tags transactions
// @Accept json
// @Produce json
// @Param walletID path string true "Wallet ID"
// @Param Idempotency-Key header string true "Client idempotency key (8-64 chars)"
// @Param request body handlers.TransactionRequestBody true "Transaction Request"
// @Success 201 {object} handlers.TransactionResponse "Transaction completed"
// @Failure 400 {object} handlers.TransactionErrorResponse "Invalid request"
// @Failure 404 {object} handlers.TransactionErrorResponse "Wallet or reference not found"
// @Failure 409 {object} handlers.TransactionErrorResponse "Idempotency conflict or retry exhaustion"
// @Failure 422 {object} handlers.TransactionErrorResponse "Insufficient balance or currency mismatch"
// @Router /wallets/{walletID}/transactions [post]
// @Security BearerAuth
func NewTransactionHandler(svc TransactionApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		walletID, err := uuid.Parse(chi.URLParam(r, "walletID"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, TransactionErrorResponse{Error: "Invalid wallet ID format"})
			return
		}

		idempotencyKey := r.Header.Get("Idempotency-Key")
		if idempotencyKey == "" {
			writeJSON(w, http.StatusBadRequest, TransactionErrorResponse{Error: "Idempotency key is required"})
			return
		}

		var body TransactionRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			logger.Log.Errorw("failed to decode transaction request", "error", err)
			writeJSON(w, http.StatusBadRequest, TransactionErrorResponse{Error: "Invalid request body"})
			return
		}

		txType, err := models.ParseTransactionType(body.Type)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, TransactionErrorResponse{Error: "Invalid transaction type"})
			return
		}

		txn, err := svc.Process(ctx, services.TransactionRequest{
			WalletID:       walletID,
			Type:           txType,
			Amount:         body.Amount,
			Currency:       body.Currency,
			IdempotencyKey: idempotencyKey,
			Description:    body.Description,
			ReferenceID:    body.ReferenceID,
		})
		if err != nil {
			writeProcessError(w, err, txn)
			return
		}

		writeJSON(w, http.StatusCreated, TransactionResponse{Transaction: txn})
	}
}

// writeProcessError maps processor errors onto HTTP status codes.
func writeProcessError(w http.ResponseWriter, err error, txn *models.TransactionDB) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidType),
		errors.Is(err, services.ErrInvalidIdempotencyKey):
		writeJSON(w, http.StatusBadRequest, TransactionErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrWalletNotFound),
		errors.Is(err, services.ErrReferenceNotFound):
		writeJSON(w, http.StatusNotFound, TransactionErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrCurrencyMismatch),
		errors.Is(err, services.ErrInvalidStateTransition):
		writeJSON(w, http.StatusUnprocessableEntity, TransactionErrorResponse{Error: err.Error(), Transaction: txn})
	case errors.Is(err, services.ErrDuplicateIdempotencyKey),
		errors.Is(err, services.ErrOptimisticLockExhausted):
		writeJSON(w, http.StatusConflict, TransactionErrorResponse{Error: err.Error(), Transaction: txn})
	default:
		logger.Log.Errorw("transaction processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, TransactionErrorResponse{Error: "Internal server error"})
	}
}
