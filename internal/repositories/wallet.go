package repositories

import (
	"database/sql"
	"errors"

	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
)

// Wallet repository errors.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrVersionConflict     = errors.New("wallet version conflict")
	ErrWalletAlreadyExists = errors.New("wallet already exists for owner")
)

// uniqueViolation is the postgres error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// WalletReadRepository handles wallet read operations.
type WalletReadRepository struct {
	db *sqlx.DB
}

func NewWalletReadRepository(db *sqlx.DB) *WalletReadRepository {
	return &WalletReadRepository{db: db}
}

// GetByID retrieves a wallet row, including its current version.
func (r *WalletReadRepository) GetByID(ctx context.Context, walletID uuid.UUID) (*models.WalletDB, error) {
	const query = `
		SELECT wallet_id, owner_id, balance, currency, low_balance_threshold, version, created_at, updated_at
		FROM wallets
		WHERE wallet_id = $1
	`

	var wallet models.WalletDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &wallet, query, walletID)

	logger.Log.Debugw("wallet query",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{walletID},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// WalletWriteRepository handles wallet write operations.
type WalletWriteRepository struct {
	db *sqlx.DB
}

func NewWalletWriteRepository(db *sqlx.DB) *WalletWriteRepository {
	return &WalletWriteRepository{db: db}
}

// Save inserts a new wallet row at version 1.
func (r *WalletWriteRepository) Save(ctx context.Context, wallet *models.WalletDB) error {
	const query = `
		INSERT INTO wallets (wallet_id, owner_id, balance, currency, low_balance_threshold, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	wallet.Version = 1
	err := executor(ctx, r.db).QueryRowxContext(ctx, query,
		wallet.WalletID, wallet.OwnerID, wallet.Balance, wallet.Currency, wallet.LowBalanceThreshold,
	).Scan(&wallet.CreatedAt, &wallet.UpdatedAt)

	logger.Log.Infow("wallet insert",
		"wallet_id", wallet.WalletID,
		"owner_id", wallet.OwnerID,
		"currency", wallet.Currency,
		"error", err,
	)

	if isUniqueViolation(err) {
		return ErrWalletAlreadyExists
	}
	return err
}

// ConditionalUpdateBalance applies a compare-and-set balance update: the row is
// mutated only if its version still equals expectedVersion, and the version is
// bumped by exactly one in the same statement. Returns the new version, or
// ErrVersionConflict when another writer got there first.
func (r *WalletWriteRepository) ConditionalUpdateBalance(ctx context.Context, walletID uuid.UUID, expectedVersion int64, newBalance decimal.Decimal) (int64, error) {
	const query = `
		UPDATE wallets
		SET balance = $1, updated_at = $2, version = version + 1
		WHERE wallet_id = $3 AND version = $4
		RETURNING version
	`

	var newVersion int64
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &newVersion, query,
		newBalance, time.Now().UTC(), walletID, expectedVersion)

	logger.Log.Debugw("wallet conditional update",
		"wallet_id", walletID,
		"expected_version", expectedVersion,
		"new_balance", newBalance,
		"new_version", newVersion,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}
