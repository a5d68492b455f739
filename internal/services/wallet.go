package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/repositories"
)

var (
	// ErrWalletAlreadyExists is returned when provisioning collides with an
	// existing wallet for the same owner and currency.
	ErrWalletAlreadyExists = errors.New("wallet already exists for owner")
)

// WalletReader defines wallet read operations.
type WalletReader interface {
	GetByID(ctx context.Context, walletID uuid.UUID) (*models.WalletDB, error)
}

// WalletWriter defines wallet provisioning operations.
type WalletWriter interface {
	Save(ctx context.Context, wallet *models.WalletDB) error
}

// HistoryReader defines transaction history read operations.
type HistoryReader interface {
	ListByWallet(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter, limit, offset int) ([]models.TransactionDB, error)
	CountByWallet(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter) (int, error)
}

// Pagination defines pagination parameters for history reads.
type Pagination struct {
	Limit  int
	Offset int
}

// History pagination bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// WalletService serves wallet provisioning and read operations.
type WalletService struct {
	reader  WalletReader
	writer  WalletWriter
	history HistoryReader
}

// NewWalletService creates a new WalletService.
func NewWalletService(reader WalletReader, writer WalletWriter, history HistoryReader) *WalletService {
	return &WalletService{
		reader:  reader,
		writer:  writer,
		history: history,
	}
}

// CreateWallet provisions a wallet with a zero balance at version 1.
func (s *WalletService) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string, lowBalanceThreshold decimal.Decimal) (*models.WalletDB, error) {
	if len(currency) != 3 {
		return nil, models.ErrInvalidCurrency
	}
	if lowBalanceThreshold.IsNegative() {
		return nil, models.ErrInvalidAmount
	}

	wallet := &models.WalletDB{
		WalletID:            uuid.New(),
		OwnerID:             ownerID,
		Balance:             decimal.Zero,
		Currency:            currency,
		LowBalanceThreshold: lowBalanceThreshold,
	}

	if err := s.writer.Save(ctx, wallet); err != nil {
		if errors.Is(err, repositories.ErrWalletAlreadyExists) {
			return nil, ErrWalletAlreadyExists
		}
		logger.Log.Errorw("failed to create wallet", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	logger.Log.Infow("wallet created",
		"wallet_id", wallet.WalletID,
		"owner_id", ownerID,
		"currency", currency)
	return wallet, nil
}

// GetBalance returns the wallet's current balance and currency.
func (s *WalletService) GetBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, string, error) {
	wallet, err := s.reader.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return decimal.Zero, "", ErrWalletNotFound
		}
		logger.Log.Errorw("failed to get wallet", "wallet_id", walletID, "error", err)
		return decimal.Zero, "", fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet.Balance, wallet.Currency, nil
}

// GetTransactionHistory returns a filtered, paginated page of the wallet's
// transactions together with the total match count.
func (s *WalletService) GetTransactionHistory(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter, p Pagination) ([]models.TransactionDB, int, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultHistoryLimit
	}
	if p.Limit > MaxHistoryLimit {
		p.Limit = MaxHistoryLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if !filter.FromDate.IsZero() && !filter.ToDate.IsZero() && filter.FromDate.After(filter.ToDate) {
		return nil, 0, errors.New("invalid date range")
	}

	// A missing wallet is a 404, not an empty history.
	if _, err := s.reader.GetByID(ctx, walletID); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, 0, ErrWalletNotFound
		}
		return nil, 0, fmt.Errorf("failed to get wallet: %w", err)
	}

	txns, err := s.history.ListByWallet(ctx, walletID, filter, p.Limit, p.Offset)
	if err != nil {
		logger.Log.Errorw("failed to list transactions", "wallet_id", walletID, "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	total, err := s.history.CountByWallet(ctx, walletID, filter)
	if err != nil {
		logger.Log.Errorw("failed to count transactions", "wallet_id", walletID, "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return txns, total, nil
}
