package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/services"
)

func TestTransactionHistoryHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHistorian := NewMockTransactionHistorian(ctrl)

	r := chi.NewRouter()
	r.Get("/wallets/{walletID}/transactions", NewTransactionHistoryHandler(mockHistorian))

	walletID := uuid.New()
	base := "/wallets/" + walletID.String() + "/transactions"

	tests := []struct {
		name           string
		path           string
		setupMocks     func()
		expectedStatus int
	}{
		{
			name: "default pagination",
			path: base,
			setupMocks: func() {
				mockHistorian.EXPECT().
					GetTransactionHistory(gomock.Any(), walletID, gomock.Any(),
						services.Pagination{Limit: services.DefaultHistoryLimit, Offset: 0}).
					Return([]models.TransactionDB{{WalletID: walletID}}, 1, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "explicit page and size",
			path: base + "?page=3&page_size=10",
			setupMocks: func() {
				mockHistorian.EXPECT().
					GetTransactionHistory(gomock.Any(), walletID, gomock.Any(),
						services.Pagination{Limit: 10, Offset: 20}).
					Return(nil, 0, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "page size capped",
			path: base + "?page_size=1000",
			setupMocks: func() {
				mockHistorian.EXPECT().
					GetTransactionHistory(gomock.Any(), walletID, gomock.Any(),
						services.Pagination{Limit: services.MaxHistoryLimit, Offset: 0}).
					Return(nil, 0, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "filter by type and status",
			path: base + "?type=DEBIT&status=COMPLETED",
			setupMocks: func() {
				mockHistorian.EXPECT().
					GetTransactionHistory(gomock.Any(), walletID,
						models.TransactionFilter{
							Types:    []models.TransactionType{models.TransactionTypeDebit},
							Statuses: []models.TransactionStatus{models.TransactionStatusCompleted},
						},
						gomock.Any()).
					Return(nil, 0, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid wallet id",
			path:           "/wallets/abc/transactions",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid type filter",
			path:           base + "?type=TRANSFER",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid status filter",
			path:           base + "?status=PENDING",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "wallet not found",
			path: base,
			setupMocks: func() {
				mockHistorian.EXPECT().
					GetTransactionHistory(gomock.Any(), walletID, gomock.Any(), gomock.Any()).
					Return(nil, 0, services.ErrWalletNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestTransactionHistoryHandlerEmptyPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHistorian := NewMockTransactionHistorian(ctrl)

	r := chi.NewRouter()
	r.Get("/wallets/{walletID}/transactions", NewTransactionHistoryHandler(mockHistorian))

	walletID := uuid.New()
	mockHistorian.EXPECT().
		GetTransactionHistory(gomock.Any(), walletID, gomock.Any(), gomock.Any()).
		Return(nil, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/wallets/"+walletID.String()+"/transactions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// An empty page serializes as [] rather than null.
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.JSONEq(t, `[]`, string(resp["transactions"]))
}
