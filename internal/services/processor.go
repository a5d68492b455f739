package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
	"github.com/billingkit/wallet-service/internal/repositories"
)

// Error taxonomy returned by the processor. Validation errors are returned
// before anything is written; the rest map to specific processing outcomes.
var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrInvalidAmount           = models.ErrInvalidAmount
	ErrInvalidType             = models.ErrInvalidTransactionType
	ErrInvalidIdempotencyKey   = models.ErrInvalidIdempotencyKey
	ErrCurrencyMismatch        = errors.New("currency mismatch between wallet and transaction")
	ErrInsufficientBalance     = errors.New("insufficient wallet balance")
	ErrOptimisticLockExhausted = errors.New("optimistic lock retries exhausted")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used with a different payload")
	ErrInvalidStateTransition  = models.ErrInvalidStateTransition
	ErrReferenceNotFound       = errors.New("refund reference transaction not found")
)

// TransactionRequest is the caller-facing contract for one balance mutation.
type TransactionRequest struct {
	WalletID       uuid.UUID
	Type           models.TransactionType
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Description    string
	ReferenceID    *uuid.UUID // required for refunds
}

// WalletStore defines the wallet row operations the processor needs.
type WalletStore interface {
	GetByID(ctx context.Context, walletID uuid.UUID) (*models.WalletDB, error)
	ConditionalUpdateBalance(ctx context.Context, walletID uuid.UUID, expectedVersion int64, newBalance decimal.Decimal) (int64, error)
}

// TransactionStore defines the ledger row operations the processor needs.
type TransactionStore interface {
	Save(ctx context.Context, txn *models.TransactionDB) error
	CompareAndSetStatus(ctx context.Context, transactionID uuid.UUID, from, to models.TransactionStatus) error
	GetByID(ctx context.Context, transactionID uuid.UUID) (*models.TransactionDB, error)
	GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*models.TransactionDB, error)
}

// IdempotencyCache is an optional fast path for replayed terminal transactions.
type IdempotencyCache interface {
	Get(ctx context.Context, walletID uuid.UUID, key string) (*models.TransactionDB, error)
	Set(ctx context.Context, walletID uuid.UUID, key string, txn *models.TransactionDB) error
}

// UnitOfWork runs a function inside one atomic storage transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// AlertPublisher emits fire-and-forget events after a mutation has committed.
type AlertPublisher interface {
	PublishLowBalance(ctx context.Context, wallet *models.WalletDB)
	PublishTransaction(ctx context.Context, txn *models.TransactionDB)
}

// ProcessorConfig bounds the optimistic retry loop.
type ProcessorConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultProcessorConfig returns the standard retry bounds.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxAttempts: 5,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

// TransactionProcessor applies one transaction to one wallet with strict
// consistency. No lock is ever held: correctness rests on the wallet store's
// conditional update plus a bounded, jittered retry loop.
type TransactionProcessor struct {
	wallets WalletStore
	txns    TransactionStore
	cache   IdempotencyCache
	uow     UnitOfWork
	alerts  AlertPublisher
	cfg     ProcessorConfig
}

// NewTransactionProcessor creates a processor. cache and alerts may be nil.
func NewTransactionProcessor(
	wallets WalletStore,
	txns TransactionStore,
	cache IdempotencyCache,
	uow UnitOfWork,
	alerts AlertPublisher,
	cfg ProcessorConfig,
) *TransactionProcessor {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultProcessorConfig()
	}
	return &TransactionProcessor{
		wallets: wallets,
		txns:    txns,
		cache:   cache,
		uow:     uow,
		alerts:  alerts,
		cfg:     cfg,
	}
}

// Process applies the request exactly once per idempotency key and returns the
// terminal transaction record. Replays of a settled key return the original
// record; replays of a key still in flight resume it.
func (p *TransactionProcessor) Process(ctx context.Context, req TransactionRequest) (*models.TransactionDB, error) {
	if len(req.IdempotencyKey) < models.IdempotencyKeyMinLen || len(req.IdempotencyKey) > models.IdempotencyKeyMaxLen {
		return nil, ErrInvalidIdempotencyKey
	}

	// Fast path: a settled replay never touches the database.
	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, req.WalletID, req.IdempotencyKey); err == nil && cached != nil {
			if !sameRequest(cached, req) {
				return nil, ErrDuplicateIdempotencyKey
			}
			logger.Log.Infow("idempotent replay served from cache",
				"wallet_id", req.WalletID, "idempotency_key", req.IdempotencyKey,
				"transaction_id", cached.TransactionID)
			return terminalResult(cached)
		}
	}

	existing, err := p.txns.GetByIdempotencyKey(ctx, req.WalletID, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if existing != nil {
		if !sameRequest(existing, req) {
			return nil, ErrDuplicateIdempotencyKey
		}
		if existing.Status.IsTerminal() {
			p.cacheTerminal(ctx, existing)
			return terminalResult(existing)
		}
		// Reserved but never settled (crash or exhausted retries): resume it.
		logger.Log.Infow("resuming in-flight transaction",
			"transaction_id", existing.TransactionID, "status", existing.Status)
		return p.settle(ctx, existing)
	}

	if err := p.validate(ctx, req); err != nil {
		return nil, err
	}

	txn := &models.TransactionDB{
		TransactionID:  uuid.New(),
		WalletID:       req.WalletID,
		Type:           req.Type,
		Status:         models.TransactionStatusInitiated,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
		ReferenceID:    req.ReferenceID,
	}

	// Durable reservation: committed before any balance mutation so a crash
	// from here on leaves a row a replay can find and resume.
	if err := p.txns.Save(ctx, txn); err != nil {
		if errors.Is(err, repositories.ErrIdempotencyKeyExists) {
			// Lost the insert race; the winner's row is authoritative.
			return p.Process(ctx, req)
		}
		return nil, fmt.Errorf("failed to reserve transaction: %w", err)
	}

	return p.settle(ctx, txn)
}

// validate applies the request-level checks that precede any write.
func (p *TransactionProcessor) validate(ctx context.Context, req TransactionRequest) error {
	if _, err := models.ParseTransactionType(string(req.Type)); err != nil {
		return ErrInvalidType
	}
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	wallet, err := p.wallets.GetByID(ctx, req.WalletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return ErrWalletNotFound
		}
		return fmt.Errorf("failed to load wallet: %w", err)
	}
	if wallet.Currency != req.Currency {
		return ErrCurrencyMismatch
	}

	if req.Type == models.TransactionTypeRefund {
		return p.validateRefund(ctx, req)
	}
	return nil
}

// validateRefund checks the refund's originating transaction: it must exist on
// the same wallet, be COMPLETED (not yet reversed), and cover the refund amount.
func (p *TransactionProcessor) validateRefund(ctx context.Context, req TransactionRequest) error {
	if req.ReferenceID == nil {
		return ErrReferenceNotFound
	}
	original, err := p.txns.GetByID(ctx, *req.ReferenceID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return ErrReferenceNotFound
		}
		return fmt.Errorf("failed to load refund reference: %w", err)
	}
	if original.WalletID != req.WalletID {
		return ErrReferenceNotFound
	}
	if original.Status != models.TransactionStatusCompleted {
		return ErrInvalidStateTransition
	}
	if req.Amount.GreaterThan(original.Amount) {
		return ErrInvalidAmount
	}
	return nil
}

// settle drives a reserved transaction to a terminal state through the
// optimistic concurrency loop.
func (p *TransactionProcessor) settle(ctx context.Context, txn *models.TransactionDB) (*models.TransactionDB, error) {
	if txn.Status == models.TransactionStatusInitiated {
		if err := p.txns.CompareAndSetStatus(ctx, txn.TransactionID, models.TransactionStatusInitiated, models.TransactionStatusProcessing); err != nil {
			if !errors.Is(err, repositories.ErrStatusAlreadyChanged) {
				return nil, fmt.Errorf("failed to start processing: %w", err)
			}
			// A concurrent replay is already driving this transaction.
			return p.reload(ctx, txn.TransactionID)
		}
		txn.Status = models.TransactionStatusProcessing
	}

	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		wallet, err := p.wallets.GetByID(ctx, txn.WalletID)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return nil, ErrWalletNotFound
			}
			return nil, fmt.Errorf("failed to load wallet: %w", err)
		}

		if txn.Type == models.TransactionTypeDebit && !wallet.HasSufficientBalance(txn.Amount) {
			// Recorded for audit, never mutates the balance.
			if err := p.txns.CompareAndSetStatus(ctx, txn.TransactionID, models.TransactionStatusProcessing, models.TransactionStatusFailed); err != nil {
				if errors.Is(err, repositories.ErrStatusAlreadyChanged) {
					return p.reload(ctx, txn.TransactionID)
				}
				return nil, fmt.Errorf("failed to record insufficient balance: %w", err)
			}
			txn.Status = models.TransactionStatusFailed
			p.cacheTerminal(ctx, txn)
			p.notify(ctx, wallet, txn, wallet.Balance)

			logger.Log.Warnw("insufficient balance",
				"wallet_id", wallet.WalletID,
				"balance", wallet.Balance,
				"requested_amount", txn.Amount,
				"transaction_id", txn.TransactionID)
			return txn, ErrInsufficientBalance
		}

		candidate := candidateBalance(wallet.Balance, txn.Type, txn.Amount)

		var newVersion int64
		err = p.uow.Do(ctx, func(ctx context.Context) error {
			v, err := p.wallets.ConditionalUpdateBalance(ctx, txn.WalletID, wallet.Version, candidate)
			if err != nil {
				return err
			}
			newVersion = v
			if err := p.txns.CompareAndSetStatus(ctx, txn.TransactionID, models.TransactionStatusProcessing, models.TransactionStatusCompleted); err != nil {
				return err
			}
			if txn.Type == models.TransactionTypeRefund {
				// The explicit compensating path: the original is reversed in
				// the same commit, so it can never be refunded twice.
				if err := p.txns.CompareAndSetStatus(ctx, *txn.ReferenceID, models.TransactionStatusCompleted, models.TransactionStatusReversed); err != nil {
					if errors.Is(err, repositories.ErrStatusAlreadyChanged) {
						return ErrInvalidStateTransition
					}
					return err
				}
			}
			return nil
		})

		if err == nil {
			txn.Status = models.TransactionStatusCompleted
			p.cacheTerminal(ctx, txn)

			wallet.Balance = candidate
			wallet.Version = newVersion
			p.notify(ctx, wallet, txn, candidate)

			logger.Log.Infow("transaction completed",
				"transaction_id", txn.TransactionID,
				"wallet_id", wallet.WalletID,
				"type", txn.Type,
				"amount", txn.Amount,
				"new_balance", candidate,
				"version", newVersion,
				"attempt", attempt+1)
			return txn, nil
		}

		if errors.Is(err, repositories.ErrVersionConflict) {
			logger.Log.Debugw("version conflict, retrying",
				"transaction_id", txn.TransactionID,
				"wallet_id", txn.WalletID,
				"attempt", attempt+1)
			if err := p.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if errors.Is(err, repositories.ErrStatusAlreadyChanged) {
			// Another replay settled this transaction under our feet.
			return p.reload(ctx, txn.TransactionID)
		}

		if errors.Is(err, ErrInvalidStateTransition) {
			// The refund's original was reversed by a competing refund after
			// validation; record this one as failed.
			if cerr := p.txns.CompareAndSetStatus(ctx, txn.TransactionID, models.TransactionStatusProcessing, models.TransactionStatusFailed); cerr == nil {
				txn.Status = models.TransactionStatusFailed
				p.cacheTerminal(ctx, txn)
			}
			return txn, ErrInvalidStateTransition
		}
		return nil, fmt.Errorf("failed to apply transaction: %w", err)
	}

	// Left PROCESSING on purpose: resubmitting the same idempotency key
	// resumes it instead of reprocessing.
	logger.Log.Warnw("optimistic lock retries exhausted",
		"transaction_id", txn.TransactionID,
		"wallet_id", txn.WalletID,
		"attempts", p.cfg.MaxAttempts)
	return txn, ErrOptimisticLockExhausted
}

// reload fetches the authoritative transaction row after losing a settle race.
func (p *TransactionProcessor) reload(ctx context.Context, transactionID uuid.UUID) (*models.TransactionDB, error) {
	txn, err := p.txns.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload transaction: %w", err)
	}
	if !txn.Status.IsTerminal() {
		// Still being driven by the concurrent replay; the caller retries
		// with the same key.
		return txn, ErrOptimisticLockExhausted
	}
	return terminalResult(txn)
}

// terminalResult pairs a terminal transaction with the error its first caller
// saw, so idempotent replays observe identical outcomes.
func terminalResult(txn *models.TransactionDB) (*models.TransactionDB, error) {
	if txn.Status != models.TransactionStatusFailed {
		return txn, nil
	}
	if txn.Type == models.TransactionTypeRefund {
		return txn, ErrInvalidStateTransition
	}
	return txn, ErrInsufficientBalance
}

// notify fires the post-commit hooks. Never fails the settled transaction.
func (p *TransactionProcessor) notify(ctx context.Context, wallet *models.WalletDB, txn *models.TransactionDB, balance decimal.Decimal) {
	if p.alerts == nil {
		return
	}
	p.alerts.PublishTransaction(ctx, txn)
	if txn.Type == models.TransactionTypeDebit &&
		txn.Status == models.TransactionStatusCompleted &&
		balance.LessThanOrEqual(wallet.LowBalanceThreshold) {
		p.alerts.PublishLowBalance(ctx, wallet)
	}
}

// cacheTerminal stores a terminal transaction for replay fast-pathing.
func (p *TransactionProcessor) cacheTerminal(ctx context.Context, txn *models.TransactionDB) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, txn.WalletID, txn.IdempotencyKey, txn); err != nil {
		logger.Log.Warnw("failed to cache terminal transaction",
			"transaction_id", txn.TransactionID, "error", err)
	}
}

// backoff sleeps for a jittered exponential delay, honoring cancellation.
func (p *TransactionProcessor) backoff(ctx context.Context, attempt int) error {
	delay := p.cfg.BaseDelay << uint(attempt)
	if delay > p.cfg.MaxDelay {
		delay = p.cfg.MaxDelay
	}
	// Half fixed, half random, so colliding writers spread out.
	delay = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// candidateBalance computes the post-transaction balance.
func candidateBalance(balance decimal.Decimal, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch txType {
	case models.TransactionTypeCredit, models.TransactionTypeRefund:
		return balance.Add(amount)
	case models.TransactionTypeDebit:
		return balance.Sub(amount)
	}
	return balance
}

// sameRequest reports whether a stored transaction matches the replayed
// request payload. A mismatch means the key was reused for a different
// operation and must be rejected, not silently answered.
func sameRequest(txn *models.TransactionDB, req TransactionRequest) bool {
	if txn.Type != req.Type || txn.Currency != req.Currency || !txn.Amount.Equal(req.Amount) {
		return false
	}
	if (txn.ReferenceID == nil) != (req.ReferenceID == nil) {
		return false
	}
	if txn.ReferenceID != nil && *txn.ReferenceID != *req.ReferenceID {
		return false
	}
	return true
}
