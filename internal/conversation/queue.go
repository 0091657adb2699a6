package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
)

// Queue carries turn jobs from publishers to workers.
type Queue interface {
	// Send enqueues body. groupID keeps messages of one session in order on
	// queues that support grouping; other queues ignore it.
	Send(ctx context.Context, body, groupID string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobType string

const jobTypeTurn jobType = "turn"

type queuePayload struct {
	ID         string             `json:"id"`
	Kind       jobType            `json:"kind"`
	Turn       scheduling.Inbound `json:"turn"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if payload.EnqueuedAt.IsZero() {
		payload.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}
	return payload, string(body), nil
}
