package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Erick-Marinho/Health-AI/internal/apphealth"
	"github.com/Erick-Marinho/Health-AI/internal/archive"
	"github.com/Erick-Marinho/Health-AI/internal/bookings"
	appconfig "github.com/Erick-Marinho/Health-AI/internal/config"
	"github.com/Erick-Marinho/Health-AI/internal/notify"
	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/internal/reasoning"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// ErrUnknownProvider is returned for an LLM or backend name that is not supported.
var ErrUnknownProvider = errors.New("bootstrap: unknown provider")

// BuildLLMClient builds the configured model client. When a fallback
// provider is set, failures of the primary are retried on it.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (reasoning.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primary, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	fallbackName := cfg.LLMFallbackProvider
	if fallbackName == "" || fallbackName == cfg.LLMProvider {
		logger.Info("llm client configured", "provider", cfg.LLMProvider)
		return primary, nil
	}
	fallback, err := buildProvider(ctx, fallbackName, cfg, awsCfg)
	if err != nil {
		logger.Warn("llm fallback unavailable; using primary only", "provider", fallbackName, "error", err)
		return primary, nil
	}
	logger.Info("llm client configured", "provider", cfg.LLMProvider, "fallback", fallbackName)
	return reasoning.NewFallbackLLMClient(primary, fallback, logger), nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config) (reasoning.LLMClient, error) {
	switch name {
	case "openai":
		return reasoning.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, errors.New("bootstrap: GEMINI_API_KEY is required for gemini")
		}
		return reasoning.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, errors.New("bootstrap: BEDROCK_MODEL_ID is required for bedrock")
		}
		return reasoning.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	default:
		return nil, fmt.Errorf("%w: llm %q", ErrUnknownProvider, name)
	}
}

// BuildReasoner wraps the model client with the dialogue's JSON contracts.
func BuildReasoner(cfg *appconfig.Config, client reasoning.LLMClient, logger *logging.Logger) *reasoning.Reasoner {
	opts := []reasoning.ReasonerOption{reasoning.WithLogger(logger)}
	if cfg.LLMProvider == "openai" {
		opts = append(opts, reasoning.WithModel(cfg.OpenAIModel), reasoning.WithTemperature(float32(cfg.OpenAITemperature)))
	}
	return reasoning.NewReasoner(client, opts...)
}

// BuildStateStore returns the session store selected by STATE_BACKEND.
func BuildStateStore(cfg *appconfig.Config, redisClient *redis.Client, pool *pgxpool.Pool) (scheduling.StateStore, error) {
	switch cfg.StateBackend {
	case "", "memory":
		return scheduling.NewMemoryStore(), nil
	case "redis":
		if redisClient == nil {
			return nil, errors.New("bootstrap: STATE_BACKEND=redis requires a reachable redis")
		}
		return scheduling.NewRedisStore(redisClient, cfg.StateTTL), nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("bootstrap: STATE_BACKEND=postgres requires DATABASE_URL")
		}
		return scheduling.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("%w: state backend %q", ErrUnknownProvider, cfg.StateBackend)
	}
}

// BuildLocker returns the per-session lock selected by LOCK_BACKEND.
func BuildLocker(cfg *appconfig.Config, redisClient *redis.Client) (scheduling.Locker, error) {
	switch cfg.LockBackend {
	case "", "local":
		return scheduling.NewLocalLocker(), nil
	case "redis":
		if redisClient == nil {
			return nil, errors.New("bootstrap: LOCK_BACKEND=redis requires a reachable redis")
		}
		return scheduling.NewRedisLocker(redisClient, cfg.LockTTL), nil
	default:
		return nil, fmt.Errorf("%w: lock backend %q", ErrUnknownProvider, cfg.LockBackend)
	}
}

// BuildDirectory returns the APPHealth directory, with the catalog cached in
// Redis when a client is available.
func BuildDirectory(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) scheduling.Directory {
	client := apphealth.NewClient(cfg.AppHealthBaseURL, cfg.AppHealthAPIToken, logger)
	var dir scheduling.Directory = apphealth.NewDirectory(client, logger)
	if redisClient != nil {
		dir = apphealth.NewCachedDirectory(dir, redisClient, cfg.DirectoryCacheTTL, logger)
	}
	return dir
}

// BuildEmailSender picks the notification transport from EMAIL_PROVIDER.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	from := notify.Identity{Email: cfg.EmailFrom, Name: cfg.EmailFromName}
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{APIKey: cfg.SendGridAPIKey, From: from}, logger); s != nil {
			return s
		}
		logger.Warn("sendgrid selected without SENDGRID_API_KEY; using stub email sender")
	case "ses":
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			From:             from,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildRecorders returns the post-booking hooks: the ledger when a database
// is configured, the clinic email, and the S3 transcript archive.
func BuildRecorders(cfg *appconfig.Config, awsCfg aws.Config, ledger *bookings.Ledger, logger *logging.Logger) []scheduling.BookingRecorder {
	var out []scheduling.BookingRecorder
	if ledger != nil {
		out = append(out, ledger)
	}
	if strings.TrimSpace(cfg.ClinicNotifyEmail) != "" {
		out = append(out, notify.NewBookingNotifier(BuildEmailSender(cfg, awsCfg, logger), cfg.ClinicNotifyEmail, logger))
	}
	if bucket := strings.TrimSpace(cfg.BookingArchiveBucket); bucket != "" {
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		out = append(out, archive.NewBookingArchiver(archive.NewStore(client, bucket, logger)))
	}
	return out
}

// EngineDeps are the collaborators the scheduling engine is built from.
type EngineDeps struct {
	Store     scheduling.StateStore
	Locker    scheduling.Locker
	Reasoning scheduling.Reasoning
	Directory scheduling.Directory
	Recorders []scheduling.BookingRecorder
	Metrics   *metrics.DialogueMetrics
}

// BuildEngine assembles the dialogue engine.
func BuildEngine(cfg *appconfig.Config, deps EngineDeps, logger *logging.Logger) (*scheduling.Engine, error) {
	opts := []scheduling.EngineOption{
		scheduling.WithLocker(deps.Locker),
		scheduling.WithExternalTimeout(cfg.ExternalCallTimeout),
		scheduling.WithMetrics(deps.Metrics),
		scheduling.WithUnitID(cfg.ClinicUnitID),
	}
	for _, r := range deps.Recorders {
		opts = append(opts, scheduling.WithBookingRecorder(r))
	}
	engine, err := scheduling.NewEngine(deps.Store, deps.Reasoning, deps.Directory, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build engine: %w", err)
	}
	return engine, nil
}
