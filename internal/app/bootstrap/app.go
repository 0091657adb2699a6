package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Erick-Marinho/Health-AI/internal/bookings"
	"github.com/Erick-Marinho/Health-AI/internal/channels/whatsapp"
	"github.com/Erick-Marinho/Health-AI/internal/channels/zapi"
	appconfig "github.com/Erick-Marinho/Health-AI/internal/config"
	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/internal/events"
	"github.com/Erick-Marinho/Health-AI/internal/http/handlers"
	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const memoryQueueBuffer = 256

// Runtime holds the shared clients and services of one process.
type Runtime struct {
	Config    *appconfig.Config
	Engine    *scheduling.Engine
	Store     scheduling.StateStore
	Queue     conversation.Queue
	Publisher *conversation.Publisher
	Jobs      conversation.JobTracker
	Processed events.Deduplicator
	Ledger    *bookings.Ledger

	Redis    *redis.Client
	Pool     *pgxpool.Pool
	LedgerDB *sql.DB

	DialogueMetrics *metrics.DialogueMetrics
	ChannelMetrics  *metrics.ChannelMetrics

	logger  *logging.Logger
	closers []func()
}

// BuildRuntime connects every backend selected by cfg and assembles the
// engine and the turn queue. Call Close when done.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, reg prometheus.Registerer, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{Config: cfg, logger: logger}
	fail := func(err error) (*Runtime, error) {
		rt.Close()
		return nil, err
	}

	rt.Redis = BuildRedisClient(ctx, cfg, logger, true)
	if rt.Redis != nil {
		rt.closers = append(rt.closers, func() { _ = rt.Redis.Close() })
	}

	pool, err := BuildPostgresPool(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)
	}

	ledgerDB, err := BuildLedgerDB(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if ledgerDB != nil {
		rt.LedgerDB = ledgerDB
		rt.closers = append(rt.closers, func() { _ = ledgerDB.Close() })
		rt.Ledger = bookings.NewLedger(ledgerDB, logger)
	}

	rt.Store, err = BuildStateStore(cfg, rt.Redis, rt.Pool)
	if err != nil {
		return fail(err)
	}
	locker, err := BuildLocker(cfg, rt.Redis)
	if err != nil {
		return fail(err)
	}

	llm, err := BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return fail(err)
	}

	rt.DialogueMetrics = metrics.NewDialogueMetrics(reg)
	rt.ChannelMetrics = metrics.NewChannelMetrics(reg)

	rt.Engine, err = BuildEngine(cfg, EngineDeps{
		Store:     rt.Store,
		Locker:    locker,
		Reasoning: BuildReasoner(cfg, llm, logger),
		Directory: BuildDirectory(cfg, rt.Redis, logger),
		Recorders: BuildRecorders(cfg, awsCfg, rt.Ledger, logger),
		Metrics:   rt.DialogueMetrics,
	}, logger)
	if err != nil {
		return fail(err)
	}

	rt.Queue, err = BuildQueue(cfg, awsCfg)
	if err != nil {
		return fail(err)
	}
	rt.Jobs = BuildJobTracker(cfg, awsCfg, logger)
	rt.Publisher = conversation.NewPublisher(rt.Queue, logger, conversation.WithJobRecorder(rt.Jobs))

	if rt.Pool != nil {
		rt.Processed = events.NewProcessedStore(rt.Pool)
	} else {
		rt.Processed = events.NewMemoryProcessedStore()
	}

	logger.Info("runtime ready",
		"state_backend", cfg.StateBackend,
		"lock_backend", cfg.LockBackend,
		"llm_provider", cfg.LLMProvider,
		"memory_queue", cfg.UseMemoryQueue,
		"ledger", rt.Ledger != nil,
	)
	return rt, nil
}

// BuildQueue returns the in-process queue or the SQS queue at
// CONVERSATION_QUEUE_URL.
func BuildQueue(cfg *appconfig.Config, awsCfg aws.Config) (conversation.Queue, error) {
	if cfg.UseMemoryQueue {
		return conversation.NewMemoryQueue(memoryQueueBuffer), nil
	}
	if strings.TrimSpace(cfg.ConversationQueueURL) == "" {
		return nil, errors.New("bootstrap: CONVERSATION_QUEUE_URL is required when USE_MEMORY_QUEUE=false")
	}
	return conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL), nil
}

// BuildJobTracker returns the DynamoDB job store when CONVERSATION_JOBS_TABLE
// is set and the in-memory one otherwise.
func BuildJobTracker(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) conversation.JobTracker {
	if table := strings.TrimSpace(cfg.ConversationJobsTable); table != "" {
		return conversation.NewJobStore(dynamodb.NewFromConfig(awsCfg), table, logger)
	}
	return conversation.NewMemoryJobStore()
}

// BuildZAPISender returns the WhatsApp reply sender, or nil when neither an
// N8N relay nor Z-API credentials are configured.
func BuildZAPISender(cfg *appconfig.Config, logger *logging.Logger) *zapi.Sender {
	sender, err := zapi.NewSender(zapi.SenderConfig{
		InstanceID:    cfg.ZAPIInstanceID,
		InstanceToken: cfg.ZAPIInstanceToken,
		ClientToken:   cfg.ZAPIClientToken,
		N8NWebhookURL: cfg.N8NWebhookURL,
	}, logger)
	if err != nil {
		logger.Warn("whatsapp replies disabled", "reason", err.Error())
		return nil
	}
	return sender
}

// BuildWhatsAppSender returns the WhatsApp Cloud API reply sender, or nil
// when its credentials are missing.
func BuildWhatsAppSender(cfg *appconfig.Config, logger *logging.Logger) *whatsapp.Sender {
	if cfg.WhatsAppAccessToken == "" && cfg.WhatsAppPhoneNumberID == "" {
		return nil
	}
	sender, err := whatsapp.NewSender(whatsapp.SenderConfig{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
	}, logger)
	if err != nil {
		logger.Warn("whatsapp cloud replies disabled", "reason", err.Error())
		return nil
	}
	return sender
}

// ReplySenders collects the outbound senders that are configured. extra is
// merged in for channels owned by the caller, such as web chat.
func ReplySenders(cfg *appconfig.Config, logger *logging.Logger, extra map[string]conversation.ReplySender) map[string]conversation.ReplySender {
	senders := make(map[string]conversation.ReplySender, len(extra)+2)
	for channel, s := range extra {
		senders[channel] = s
	}
	if s := BuildZAPISender(cfg, logger); s != nil {
		senders[zapi.Channel] = s
	}
	if s := BuildWhatsAppSender(cfg, logger); s != nil {
		senders[whatsapp.Channel] = s
	}
	return senders
}

// NewWorker builds a queue consumer delivering replies through senders.
func (rt *Runtime) NewWorker(senders map[string]conversation.ReplySender) *conversation.Worker {
	opts := []conversation.WorkerOption{
		conversation.WithWorkerCount(rt.Config.WorkerCount),
		conversation.WithProcessedStore(rt.Processed),
		conversation.WithJobUpdater(rt.Jobs),
		conversation.WithChannelMetrics(rt.ChannelMetrics),
	}
	for channel, sender := range senders {
		opts = append(opts, conversation.WithReplySender(channel, sender))
	}
	return conversation.NewWorker(rt.Engine, rt.Queue, rt.logger, opts...)
}

// Pingers lists the connected backends for the readiness check.
func (rt *Runtime) Pingers() map[string]handlers.Pinger {
	out := make(map[string]handlers.Pinger)
	if rt.Redis != nil {
		out["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() })
	}
	if rt.Pool != nil {
		out["postgres"] = rt.Pool
	}
	if rt.LedgerDB != nil {
		out["ledger"] = handlers.PingFunc(rt.LedgerDB.PingContext)
	}
	return out
}

// Close releases connections in reverse order of creation.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
