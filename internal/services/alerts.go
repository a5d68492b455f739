package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/billingkit/wallet-service/internal/logger"
	"github.com/billingkit/wallet-service/internal/models"
)

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// LowBalanceEvent is emitted when a completed debit leaves the balance at or
// below the wallet's threshold.
type LowBalanceEvent struct {
	EventID    string          `json:"event_id"`
	WalletID   uuid.UUID       `json:"wallet_id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Balance    decimal.Decimal `json:"balance"`
	Threshold  decimal.Decimal `json:"threshold"`
	Currency   string          `json:"currency"`
	OccurredAt int64           `json:"occurred_at"`
}

// TransactionEvent mirrors a transaction that reached a terminal state.
type TransactionEvent struct {
	EventID       string          `json:"event_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OccurredAt    int64           `json:"occurred_at"`
}

// AlertService publishes ledger events to Kafka. Every publish is best-effort:
// the balance mutation has already committed, so delivery failures are logged
// and swallowed, never propagated to the caller.
type AlertService struct {
	writer           KafkaWriter
	alertTopic       string
	transactionTopic string
}

// NewAlertService creates an AlertService over the given writer and topics.
func NewAlertService(writer KafkaWriter, alertTopic, transactionTopic string) *AlertService {
	return &AlertService{
		writer:           writer,
		alertTopic:       alertTopic,
		transactionTopic: transactionTopic,
	}
}

// publish marshals and writes one message, swallowing failures.
func (s *AlertService) publish(ctx context.Context, topic string, key string, event any) {
	if s.writer == nil {
		logger.Log.Warnw("kafka writer not configured, skipping publish", "topic", topic, "key", key)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("failed to marshal event", "topic", topic, "key", key, "error", err)
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("failed to publish event", "topic", topic, "key", key, "error", err)
		return
	}
	logger.Log.Infow("event published", "topic", topic, "key", key)
}

// PublishLowBalance emits a low-balance alert for the wallet's current state.
func (s *AlertService) PublishLowBalance(ctx context.Context, wallet *models.WalletDB) {
	event := LowBalanceEvent{
		EventID:    uuid.NewString(),
		WalletID:   wallet.WalletID,
		OwnerID:    wallet.OwnerID,
		Balance:    wallet.Balance,
		Threshold:  wallet.LowBalanceThreshold,
		Currency:   wallet.Currency,
		OccurredAt: time.Now().Unix(),
	}
	s.publish(ctx, s.alertTopic, wallet.WalletID.String(), event)
}

// PublishTransaction emits an event mirroring a terminal transaction.
func (s *AlertService) PublishTransaction(ctx context.Context, txn *models.TransactionDB) {
	event := TransactionEvent{
		EventID:       uuid.NewString(),
		TransactionID: txn.TransactionID,
		WalletID:      txn.WalletID,
		Type:          string(txn.Type),
		Status:        string(txn.Status),
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		OccurredAt:    time.Now().Unix(),
	}
	s.publish(ctx, s.transactionTopic, txn.TransactionID.String(), event)
}
