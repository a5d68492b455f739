package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/services"
)

func TestTransactionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockApplier := NewMockTransactionApplier(ctrl)

	r := chi.NewRouter()
	r.Post("/wallets/{walletID}/transactions", NewTransactionHandler(mockApplier))

	walletID := uuid.New()
	path := "/wallets/" + walletID.String() + "/transactions"

	completed := &models.TransactionDB{
		TransactionID: uuid.New(),
		WalletID:      walletID,
		Type:          models.TransactionTypeDebit,
		Status:        models.TransactionStatusCompleted,
		Amount:        decimal.NewFromInt(100),
		Currency:      "USD",
	}
	failed := &models.TransactionDB{
		TransactionID: uuid.New(),
		WalletID:      walletID,
		Type:          models.TransactionTypeDebit,
		Status:        models.TransactionStatusFailed,
		Amount:        decimal.NewFromInt(100),
		Currency:      "USD",
	}

	tests := []struct {
		name           string
		path           string
		idempotencyKey string
		body           string
		setupMocks     func()
		expectedStatus int
	}{
		{
			name:           "successful debit",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"DEBIT","amount":"100","currency":"USD"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(completed, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid wallet id",
			path:           "/wallets/nope/transactions",
			idempotencyKey: "order-12345",
			body:           `{"type":"DEBIT","amount":"100","currency":"USD"}`,
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing idempotency key",
			path:           path,
			idempotencyKey: "",
			body:           `{"type":"DEBIT","amount":"100","currency":"USD"}`,
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid body",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{broken`,
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown transaction type",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"TRANSFER","amount":"100","currency":"USD"}`,
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wallet not found",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"CREDIT","amount":"100","currency":"USD"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(nil, services.ErrWalletNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "refund reference not found",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"REFUND","amount":"100","currency":"USD"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(nil, services.ErrReferenceNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "insufficient balance",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"DEBIT","amount":"100","currency":"USD"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(failed, services.ErrInsufficientBalance)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "currency mismatch",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"DEBIT","amount":"100","currency":"EUR"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(nil, services.ErrCurrencyMismatch)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "duplicate idempotency key",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"DEBIT","amount":"200","currency":"USD"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(nil, services.ErrDuplicateIdempotencyKey)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "retries exhausted",
			path:           path,
			idempotencyKey: "order-12345",
			body:           `{"type":"DEBIT","amount":"100","currency":"USD"}`,
			setupMocks: func() {
				mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
					Return(nil, services.ErrOptimisticLockExhausted)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()

			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.idempotencyKey != "" {
				req.Header.Set("Idempotency-Key", tt.idempotencyKey)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestTransactionHandlerReturnsFailedRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockApplier := NewMockTransactionApplier(ctrl)

	r := chi.NewRouter()
	r.Post("/wallets/{walletID}/transactions", NewTransactionHandler(mockApplier))

	walletID := uuid.New()
	failed := &models.TransactionDB{
		TransactionID: uuid.New(),
		WalletID:      walletID,
		Status:        models.TransactionStatusFailed,
	}

	mockApplier.EXPECT().Process(gomock.Any(), gomock.Any()).
		Return(failed, services.ErrInsufficientBalance)

	req := httptest.NewRequest(http.MethodPost, "/wallets/"+walletID.String()+"/transactions",
		bytes.NewBufferString(`{"type":"DEBIT","amount":"999","currency":"USD"}`))
	req.Header.Set("Idempotency-Key", "order-12345")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp TransactionErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Transaction)
	assert.Equal(t, failed.TransactionID, resp.Transaction.TransactionID)
}
