package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/simcheck-bridge/internal/models"
)

// ReceiptRepository appends digital receipts to a Redis list consumed by the
// LMS notification system.
type ReceiptRepository struct {
	client *redis.Client
	key    string
}

// NewReceiptRepository constructs the outbox repository.
func NewReceiptRepository(client *redis.Client, key string) *ReceiptRepository {
	if key == "" {
		key = "simcheck:receipts"
	}
	return &ReceiptRepository{client: client, key: key}
}

// Push appends receipts to the outbox in a single round trip.
func (r *ReceiptRepository) Push(ctx context.Context, receipts ...models.DigitalReceipt) error {
	if r.client == nil {
		return fmt.Errorf("receipt outbox unavailable")
	}
	if len(receipts) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(receipts))
	for _, receipt := range receipts {
		payload, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshal receipt: %w", err)
		}
		values = append(values, payload)
	}
	if err := r.client.RPush(ctx, r.key, values...).Err(); err != nil {
		return fmt.Errorf("push receipts: %w", err)
	}
	return nil
}
