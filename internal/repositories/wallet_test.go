package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
)

// --- Setup Postgres ---
func setupPostgres(t *testing.T) (*sqlx.DB, func()) {
	logger.Initialize("debug")
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/testdb?sslmode=disable", host, port.Port())
	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			wallet_id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			balance NUMERIC(20,2) NOT NULL DEFAULT 0.0,
			currency CHAR(3) NOT NULL,
			low_balance_threshold NUMERIC(20,2) NOT NULL DEFAULT 0.0,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, currency)
		);`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
			transaction_id UUID PRIMARY KEY,
			wallet_id UUID NOT NULL REFERENCES wallets(wallet_id) ON DELETE CASCADE,
			type VARCHAR(10) NOT NULL,
			status VARCHAR(12) NOT NULL,
			amount NUMERIC(20,2) NOT NULL,
			currency CHAR(3) NOT NULL,
			idempotency_key VARCHAR(64) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reference_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (wallet_id, idempotency_key)
		);`,
	}

	for _, m := range migrations {
		_, err = db.Exec(m)
		require.NoError(t, err)
	}

	return db, func() {
		db.Close()
		container.Terminate(ctx)
	}
}

// --- Helpers ---
func newTestWallet(ownerID uuid.UUID, currency string) *models.WalletDB {
	return &models.WalletDB{
		WalletID:            uuid.New(),
		OwnerID:             ownerID,
		Balance:             decimal.Zero,
		Currency:            currency,
		LowBalanceThreshold: decimal.NewFromInt(100),
	}
}

func mustSaveWallet(t *testing.T, db *sqlx.DB, wallet *models.WalletDB) {
	t.Helper()
	require.NoError(t, NewWalletWriteRepository(db).Save(context.Background(), wallet))
}

// --- Wallet provisioning ---
func TestWalletSaveAndGet(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewWalletWriteRepository(db)
	reader := NewWalletReadRepository(db)

	wallet := newTestWallet(uuid.New(), "USD")
	require.NoError(t, writer.Save(ctx, wallet))
	assert.Equal(t, int64(1), wallet.Version)
	assert.False(t, wallet.CreatedAt.IsZero())

	fetched, err := reader.GetByID(ctx, wallet.WalletID)
	require.NoError(t, err)
	assert.Equal(t, wallet.WalletID, fetched.WalletID)
	assert.Equal(t, wallet.OwnerID, fetched.OwnerID)
	assert.True(t, fetched.Balance.IsZero())
	assert.Equal(t, int64(1), fetched.Version)
}

func TestWalletSaveDuplicateOwnerCurrency(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewWalletWriteRepository(db)
	ownerID := uuid.New()

	require.NoError(t, writer.Save(ctx, newTestWallet(ownerID, "USD")))

	err := writer.Save(ctx, newTestWallet(ownerID, "USD"))
	assert.ErrorIs(t, err, ErrWalletAlreadyExists)

	// A different currency for the same owner is fine.
	assert.NoError(t, writer.Save(ctx, newTestWallet(ownerID, "EUR")))
}

func TestWalletGetByIDNotFound(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	_, err := NewWalletReadRepository(db).GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

// --- Conditional balance update ---
func TestConditionalUpdateBalance(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewWalletWriteRepository(db)
	reader := NewWalletReadRepository(db)

	wallet := newTestWallet(uuid.New(), "USD")
	mustSaveWallet(t, db, wallet)

	newVersion, err := writer.ConditionalUpdateBalance(ctx, wallet.WalletID, 1, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, int64(2), newVersion)

	fetched, err := reader.GetByID(ctx, wallet.WalletID)
	require.NoError(t, err)
	assert.True(t, fetched.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(2), fetched.Version)
}

func TestConditionalUpdateBalanceStaleVersion(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewWalletWriteRepository(db)

	wallet := newTestWallet(uuid.New(), "USD")
	mustSaveWallet(t, db, wallet)

	_, err := writer.ConditionalUpdateBalance(ctx, wallet.WalletID, 1, decimal.NewFromInt(500))
	require.NoError(t, err)

	// Version 1 is stale now.
	_, err = writer.ConditionalUpdateBalance(ctx, wallet.WalletID, 1, decimal.NewFromInt(700))
	assert.ErrorIs(t, err, ErrVersionConflict)

	// Unknown wallet looks the same as a conflict at this level.
	_, err = writer.ConditionalUpdateBalance(ctx, uuid.New(), 1, decimal.NewFromInt(700))
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestConditionalUpdateBalanceConcurrent(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewWalletWriteRepository(db)
	reader := NewWalletReadRepository(db)

	wallet := newTestWallet(uuid.New(), "USD")
	mustSaveWallet(t, db, wallet)

	// Each goroutine retries its read-modify-write until its version wins.
	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				current, err := reader.GetByID(ctx, wallet.WalletID)
				if !assert.NoError(t, err) {
					return
				}
				_, err = writer.ConditionalUpdateBalance(ctx, wallet.WalletID,
					current.Version, current.Balance.Add(decimal.NewFromInt(10)))
				if err == nil {
					return
				}
				if !assert.ErrorIs(t, err, ErrVersionConflict) {
					return
				}
			}
		}()
	}
	wg.Wait()

	final, err := reader.GetByID(ctx, wallet.WalletID)
	require.NoError(t, err)
	assert.True(t, final.Balance.Equal(decimal.NewFromInt(n*10)), "balance: %s", final.Balance)
	assert.Equal(t, int64(1+n), final.Version)
}
