package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
)

// IdempotencyCacheRepository caches terminal transactions in Redis keyed by
// (wallet, idempotency key), so replays of settled requests short-circuit
// without a database round-trip. The database unique index stays the durable
// guard; a cache miss only means the slow path.
type IdempotencyCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration for cached terminal transactions
}

// NewIdempotencyCacheRepository creates a new cache repository with the given TTL.
func NewIdempotencyCacheRepository(client *redis.Client, expiration time.Duration) *IdempotencyCacheRepository {
	return &IdempotencyCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func idempotencyCacheKey(walletID uuid.UUID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", walletID, key)
}

// Get fetches a cached terminal transaction. Returns (nil, nil) on a miss.
func (r *IdempotencyCacheRepository) Get(ctx context.Context, walletID uuid.UUID, key string) (*models.TransactionDB, error) {
	cacheKey := idempotencyCacheKey(walletID, key)

	val, err := r.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logger.Log.Warnw("idempotency cache read failed", "key", cacheKey, "error", err)
		return nil, err
	}

	var txn models.TransactionDB
	if err := json.Unmarshal(val, &txn); err != nil {
		logger.Log.Warnw("idempotency cache entry corrupt", "key", cacheKey, "error", err)
		return nil, err
	}
	return &txn, nil
}

// Set stores a terminal transaction with expiration. Non-terminal transactions
// are rejected: their outcome is still in flight and must come from the database.
func (r *IdempotencyCacheRepository) Set(ctx context.Context, walletID uuid.UUID, key string, txn *models.TransactionDB) error {
	if !txn.Status.IsTerminal() {
		return fmt.Errorf("refusing to cache non-terminal transaction %s", txn.TransactionID)
	}

	data, err := json.Marshal(txn)
	if err != nil {
		return err
	}

	cacheKey := idempotencyCacheKey(walletID, key)
	err = r.client.Set(ctx, cacheKey, data, r.exp).Err()

	logger.Log.Debugw("idempotency cache write",
		"key", cacheKey,
		"transaction_id", txn.TransactionID,
		"status", txn.Status,
		"error", err,
	)

	return err
}
