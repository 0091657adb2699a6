package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// Publisher enqueues inbound turns for asynchronous processing.
type Publisher struct {
	queue  Queue
	jobs   JobRecorder
	logger *logging.Logger
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithJobRecorder records a pending job for every enqueued turn.
func WithJobRecorder(jobs JobRecorder) PublisherOption {
	return func(p *Publisher) { p.jobs = jobs }
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger, opts ...PublisherOption) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Publisher{queue: queue, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnqueueTurn publishes one inbound message. It returns the job id.
func (p *Publisher) EnqueueTurn(ctx context.Context, in scheduling.Inbound) (string, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return "", errors.New("conversation: session id required")
	}

	payload, body, err := encodePayload(queuePayload{Kind: jobTypeTurn, Turn: in})
	if err != nil {
		return "", err
	}
	// The job record goes first so a fast worker never updates a missing row.
	if p.jobs != nil {
		job := &JobRecord{JobID: payload.ID, SessionID: in.SessionID, Channel: in.Channel}
		if err := p.jobs.PutPending(ctx, job); err != nil {
			p.logger.Warn("failed to record pending job", "error", err, "job_id", payload.ID)
		}
	}
	if err := p.queue.Send(ctx, body, in.SessionID); err != nil {
		return "", fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("conversation job enqueued", "job_id", payload.ID, "session_id", in.SessionID, "channel", in.Channel)
	return payload.ID, nil
}

// Job returns the status of a queued turn.
func (p *Publisher) Job(ctx context.Context, jobID string) (*JobRecord, error) {
	if p.jobs == nil {
		return nil, ErrJobNotFound
	}
	return p.jobs.GetJob(ctx, jobID)
}
