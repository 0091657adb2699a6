package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	sendTimeout          = 10 * time.Second

	failureReply = "Desculpe, tive um problema para responder agora. Pode enviar sua mensagem novamente em instantes?"
)

// TurnHandler runs one dialogue turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in scheduling.Inbound) (scheduling.Outbound, error)
}

// Reply is an outbound message addressed to the channel a turn came from.
type Reply struct {
	SessionID string
	To        string
	Text      string
	InReplyTo string
}

// ReplySender delivers replies on one channel.
type ReplySender interface {
	SendReply(ctx context.Context, reply Reply) error
}

type processedStore interface {
	MarkProcessed(ctx context.Context, provider, messageID string) (bool, error)
}

// Worker consumes turn jobs from the queue, runs them through the engine and
// routes the reply back to the originating channel.
type Worker struct {
	engine    TurnHandler
	queue     Queue
	processed processedStore
	jobs      JobUpdater
	senders   map[string]ReplySender
	metrics   *metrics.ChannelMetrics
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	processed        processedStore
	jobs             JobUpdater
	senders          map[string]ReplySender
	metrics          *metrics.ChannelMetrics
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithProcessedStore skips inbound messages whose provider id was already seen.
func WithProcessedStore(store processedStore) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.processed = store
	}
}

// WithJobUpdater records the outcome of each turn job.
func WithJobUpdater(jobs JobUpdater) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.jobs = jobs
	}
}

// WithReplySender routes replies for channel to sender.
func WithReplySender(channel string, sender ReplySender) WorkerOption {
	return func(cfg *workerConfig) {
		if sender == nil || channel == "" {
			return
		}
		if cfg.senders == nil {
			cfg.senders = make(map[string]ReplySender)
		}
		cfg.senders[channel] = sender
	}
}

// WithChannelMetrics records inbound and outbound counters.
func WithChannelMetrics(m *metrics.ChannelMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

// NewWorker constructs a queue consumer around the engine.
func NewWorker(engine TurnHandler, queue Queue, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		engine:    engine,
		queue:     queue,
		processed: cfg.processed,
		jobs:      cfg.jobs,
		senders:   cfg.senders,
		metrics:   cfg.metrics,
		logger:    logger.WithComponent("conversation_worker"),
		cfg:       cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive conversation jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	defer w.deleteMessage(context.Background(), msg.ReceiptHandle)

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode conversation job", "error", err, "msg_id", msg.ID)
		return
	}
	if payload.Kind != jobTypeTurn {
		w.logger.Error("unknown conversation job type", "kind", payload.Kind, "job_id", payload.ID)
		return
	}

	in := payload.Turn
	if w.isDuplicate(ctx, in) {
		w.metrics.ObserveInbound(in.Channel, "duplicate")
		w.logger.Info("skipping duplicate inbound message", "job_id", payload.ID, "message_id", in.MessageID, "channel", in.Channel)
		return
	}

	out, err := w.process(ctx, in)
	if err != nil {
		w.metrics.ObserveInbound(in.Channel, "failed")
		w.logger.Error("conversation job failed", "error", err, "job_id", payload.ID, "session_id", in.SessionID)
		w.recordJob(ctx, payload.ID, "", err)
		w.deliver(ctx, in, failureReply)
		return
	}
	w.metrics.ObserveInbound(in.Channel, "processed")
	w.recordJob(ctx, payload.ID, out.Text, nil)
	w.logger.Debug("conversation job processed", "job_id", payload.ID, "session_id", in.SessionID, "queued_for", time.Since(payload.EnqueuedAt).String())
	w.deliver(ctx, in, out.Text)
}

// process runs the turn and turns a panic into an error so one bad job never
// stops the consumer.
func (w *Worker) process(ctx context.Context, in scheduling.Inbound) (out scheduling.Outbound, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while processing turn", "panic", fmt.Sprint(r), "stack", string(debug.Stack()), "session_id", in.SessionID)
			err = fmt.Errorf("conversation: panic: %v", r)
		}
	}()
	return w.engine.HandleTurn(ctx, in)
}

func (w *Worker) isDuplicate(ctx context.Context, in scheduling.Inbound) bool {
	if w.processed == nil || strings.TrimSpace(in.MessageID) == "" {
		return false
	}
	fresh, err := w.processed.MarkProcessed(ctx, in.Channel, in.MessageID)
	if err != nil {
		w.logger.Warn("processed-message check failed", "error", err, "message_id", in.MessageID)
		return false
	}
	return !fresh
}

func (w *Worker) recordJob(ctx context.Context, jobID, reply string, jobErr error) {
	if w.jobs == nil {
		return
	}
	var err error
	if jobErr != nil {
		err = w.jobs.MarkFailed(ctx, jobID, jobErr.Error())
	} else {
		err = w.jobs.MarkCompleted(ctx, jobID, reply)
	}
	if err != nil {
		w.logger.Warn("failed to update job status", "error", err, "job_id", jobID)
	}
}

func (w *Worker) deliver(ctx context.Context, in scheduling.Inbound, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	sender, ok := w.senders[in.Channel]
	if !ok {
		w.logger.Warn("no reply sender for channel", "channel", in.Channel, "session_id", in.SessionID)
		w.metrics.ObserveOutbound(in.Channel, "unroutable")
		return
	}

	to := in.Contact
	if to == "" {
		to = in.SessionID
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	if err := sender.SendReply(sendCtx, Reply{SessionID: in.SessionID, To: to, Text: text, InReplyTo: in.MessageID}); err != nil {
		w.metrics.ObserveOutbound(in.Channel, "failed")
		w.logger.Error("failed to deliver reply", "error", err, "channel", in.Channel, "session_id", in.SessionID)
		return
	}
	w.metrics.ObserveOutbound(in.Channel, "sent")
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}
	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete conversation job", "error", err)
	}
}
