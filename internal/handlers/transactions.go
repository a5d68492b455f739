package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/services"
)

// TransactionHistorian defines the interface that the service must implement.
type TransactionHistorian interface {
	GetTransactionHistory(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter, p services.Pagination) ([]models.TransactionDB, int, error)
}

// TransactionHistoryResponse represents a page of a wallet's transactions
// swagger:model TransactionHistoryResponse
type TransactionHistoryResponse struct {
	Transactions []models.TransactionDB `json:"transactions"`

	// Total transactions matching the filter
	// example: 42
	Total int `json:"total"`

	// Page number, 1-based
	// example: 1
	Page int `json:"page"`

	// Page size
	// example: 20
	PageSize int `json:"page_size"`
}

// TransactionHistoryErrorResponse represents an error response for history reads
// swagger:model TransactionHistoryErrorResponse
type TransactionHistoryErrorResponse struct {
	// Error message
	// example: Wallet not found
	Error string `json:"error"`
}

// NewTransactionHistoryHandler returns an HTTP handler for listing a wallet's transactions.
// @Summary List transactions
// @Description Return a filtered, paginated page of the wallet's transactions, newest first.
// @Tags transactions
// @Produce json
// @Param walletID path string true "Wallet ID"
// @Param page query int false "Page number, 1-based"
// @Param page_size query int false "Page size, capped at 100"
// @Param type query string false "Filter by transaction type"
// @Param status query string false "Filter by transaction status"
// @Param from_date query string false "Filter by creation date, RFC3339"
// @Param to_date query string false "Filter by creation date, RFC3339"
// @Success 200 {object} handlers.TransactionHistoryResponse "Transaction page"
// @Failure 400 {object} handlers.TransactionHistoryErrorResponse "Invalid request"
// @Failure 404 {object} handlers.TransactionHistoryErrorResponse "Wallet not found"
// @Router /wallets/{walletID}/transactions [get]
// @Security BearerAuth
func NewTransactionHistoryHandler(svc TransactionHistorian) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		walletID, err := uuid.Parse(chi.URLParam(r, "walletID"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, TransactionHistoryErrorResponse{Error: "Invalid wallet ID format"})
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if pageSize <= 0 {
			pageSize = services.DefaultHistoryLimit
		}
		if pageSize > services.MaxHistoryLimit {
			pageSize = services.MaxHistoryLimit
		}

		var filter models.TransactionFilter
		if s := r.URL.Query().Get("type"); s != "" {
			txType, err := models.ParseTransactionType(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, TransactionHistoryErrorResponse{Error: "Invalid transaction type"})
				return
			}
			filter.Types = append(filter.Types, txType)
		}
		if s := r.URL.Query().Get("status"); s != "" {
			status, err := models.ParseTransactionStatus(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, TransactionHistoryErrorResponse{Error: "Invalid transaction status"})
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
		if s := r.URL.Query().Get("from_date"); s != "" {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				filter.FromDate = parsed
			}
		}
		if s := r.URL.Query().Get("to_date"); s != "" {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				filter.ToDate = parsed
			}
		}

		txns, total, err := svc.GetTransactionHistory(ctx, walletID, filter, services.Pagination{
			Limit:  pageSize,
			Offset: (page - 1) * pageSize,
		})
		if err != nil {
			if errors.Is(err, services.ErrWalletNotFound) {
				writeJSON(w, http.StatusNotFound, TransactionHistoryErrorResponse{Error: "Wallet not found"})
				return
			}
			logger.Log.Errorw("failed to get transaction history", "wallet_id", walletID, "error", err)
			writeJSON(w, http.StatusInternalServerError, TransactionHistoryErrorResponse{Error: "Internal server error"})
			return
		}

		if txns == nil {
			txns = []models.TransactionDB{}
		}
		writeJSON(w, http.StatusOK, TransactionHistoryResponse{
			Transactions: txns,
			Total:        total,
			Page:         page,
			PageSize:     pageSize,
		})
	}
}
