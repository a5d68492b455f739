package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
)

// Transaction repository errors.
var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrIdempotencyKeyExists = errors.New("transaction with this idempotency key already exists")
	ErrStatusAlreadyChanged = errors.New("transaction status already changed")
)

const transactionColumns = `transaction_id, wallet_id, type, status, amount, currency, idempotency_key, description, reference_id, created_at, updated_at`

// TransactionWriteRepository handles transaction write operations. Transaction
// rows are append-only: inserts plus guarded status flips, never deletes.
type TransactionWriteRepository struct {
	db *sqlx.DB
}

func NewTransactionWriteRepository(db *sqlx.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

// Save inserts a new transaction row. The unique (wallet_id, idempotency_key)
// index makes this the durable idempotency reservation: a concurrent insert with
// the same key fails with ErrIdempotencyKeyExists.
func (r *TransactionWriteRepository) Save(ctx context.Context, txn *models.TransactionDB) error {
	const query = `
		INSERT INTO wallet_transactions (transaction_id, wallet_id, type, status, amount, currency, idempotency_key, description, reference_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`

	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		txn.TransactionID, txn.WalletID, txn.Type, txn.Status, txn.Amount,
		txn.Currency, txn.IdempotencyKey, txn.Description, txn.ReferenceID, now)

	logger.Log.Infow("transaction insert",
		"transaction_id", txn.TransactionID,
		"wallet_id", txn.WalletID,
		"type", txn.Type,
		"status", txn.Status,
		"idempotency_key", txn.IdempotencyKey,
		"error", err,
	)

	if isUniqueViolation(err) {
		return ErrIdempotencyKeyExists
	}
	return err
}

// CompareAndSetStatus flips a transaction's status only when it still holds the
// expected current status, keeping terminal rows immutable and concurrent
// replays from double-flipping. Returns ErrStatusAlreadyChanged when the row
// exists but the status no longer matches.
func (r *TransactionWriteRepository) CompareAndSetStatus(ctx context.Context, transactionID uuid.UUID, from, to models.TransactionStatus) error {
	if !models.CanTransition(from, to) {
		return models.ErrInvalidStateTransition
	}

	const query = `
		UPDATE wallet_transactions
		SET status = $1, updated_at = $2
		WHERE transaction_id = $3 AND status = $4
	`

	res, err := executor(ctx, r.db).ExecContext(ctx, query, to, time.Now().UTC(), transactionID, from)

	logger.Log.Debugw("transaction status update",
		"transaction_id", transactionID,
		"from", from,
		"to", to,
		"error", err,
	)

	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusAlreadyChanged
	}
	return nil
}

// TransactionReadRepository handles transaction read operations.
type TransactionReadRepository struct {
	db *sqlx.DB
}

func NewTransactionReadRepository(db *sqlx.DB) *TransactionReadRepository {
	return &TransactionReadRepository{db: db}
}

// GetByID retrieves a transaction by its identifier.
func (r *TransactionReadRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*models.TransactionDB, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE transaction_id = $1`

	var txn models.TransactionDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &txn, query, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByIdempotencyKey retrieves the transaction reserved under the given
// (wallet, key) pair. Returns (nil, nil) when no such transaction exists.
func (r *TransactionReadRepository) GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*models.TransactionDB, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE wallet_id = $1 AND idempotency_key = $2`

	var txn models.TransactionDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &txn, query, walletID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByWallet retrieves a page of a wallet's transactions, newest first,
// optionally narrowed by type, status and creation date range.
func (r *TransactionReadRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter, limit, offset int) ([]models.TransactionDB, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE wallet_id = ?`
	args := []any{walletID}

	if len(filter.Types) > 0 {
		query += ` AND type IN (?)`
		args = append(args, filter.Types)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (?)`
		args = append(args, filter.Statuses)
	}
	if !filter.FromDate.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, filter.ToDate)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var txns []models.TransactionDB
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &txns, query, args...); err != nil {
		return nil, err
	}
	return txns, nil
}

// CountByWallet returns the number of a wallet's transactions matching the filter.
func (r *TransactionReadRepository) CountByWallet(ctx context.Context, walletID uuid.UUID, filter models.TransactionFilter) (int, error) {
	query := `SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = ?`
	args := []any{walletID}

	if len(filter.Types) > 0 {
		query += ` AND type IN (?)`
		args = append(args, filter.Types)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (?)`
		args = append(args, filter.Statuses)
	}
	if !filter.FromDate.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, filter.ToDate)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	query = r.db.Rebind(query)

	var total int
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, query, args...); err != nil {
		return 0, err
	}
	return total, nil
}
