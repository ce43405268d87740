package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arvindkp/settlements/internal/domain/transaction"
	"github.com/redis/go-redis/v9"
)

const (
	// EventStream carries terminal settlement events for downstream consumers.
	EventStream = "settlements:events"
	// DLQStream mirrors dead-letter payloads for inspection tooling.
	DLQStream = "settlements:dlq"
)

// StreamPublisher publishes settlement lifecycle events to Redis streams.
// Publishing is best-effort; callers log and continue on failure.
type StreamPublisher struct {
	client *redis.Client
}

func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

// PublishSettled emits a terminal-state event for a transaction.
func (p *StreamPublisher) PublishSettled(ctx context.Context, t *transaction.Transaction) error {
	eventType := "settlement.succeeded"
	if t.Status == transaction.StatusFailed {
		eventType = "settlement.failed"
	}

	payload, err := json.Marshal(map[string]any{
		"transactionId": t.ID.String(),
		"clientId":      t.ClientID,
		"amount":        t.AmountCents,
		"currency":      t.Currency,
		"status":        string(t.Status),
		"attempts":      t.Attempts,
	})
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: EventStream,
		Values: map[string]any{
			"transaction_id": t.ID.String(),
			"event_type":     eventType,
			"payload":        string(payload),
			"timestamp":      time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish settlement event: %w", err)
	}
	return nil
}

// PublishDeadLetter mirrors a dead-letter payload to the DLQ stream.
func (p *StreamPublisher) PublishDeadLetter(ctx context.Context, d *transaction.DeadLetterJob) error {
	payload, err := d.Encode()
	if err != nil {
		return err
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: DLQStream,
		Values: map[string]any{
			"transaction_id": d.TransactionID,
			"reason":         d.FailureReason,
			"payload":        payload,
			"timestamp":      time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish dead letter event: %w", err)
	}
	return nil
}
