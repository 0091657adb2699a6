package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Session state and concurrency
	StateBackend        string
	StateTTL            time.Duration
	LockBackend         string
	LockTTL             time.Duration
	ExternalCallTimeout time.Duration

	// Reasoning (LLM) providers
	LLMProvider         string
	LLMFallbackProvider string
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAITemperature   float64
	OpenAIBaseURL       string
	GeminiAPIKey        string
	GeminiModelID       string
	BedrockModelID      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Clinic directory
	AppHealthBaseURL  string
	AppHealthAPIToken string
	ClinicUnitID      string
	DirectoryCacheTTL time.Duration

	// Queue / worker
	UseMemoryQueue        bool
	ConversationQueueURL  string
	ConversationJobsTable string
	WorkerCount           int
	WorkerInProcess       bool

	// Z-API / N8N delivery
	ZAPIInstanceID       string
	ZAPIInstanceToken    string
	ZAPIClientToken      string
	N8NWebhookURL        string
	SessionRatePerMinute int

	// WhatsApp Cloud API
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAPIVersion    string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string

	AdminJWTSecret        string
	WebchatAllowedOrigins []string
	APIRatePerMinute      int

	// S3 archive of booking transcripts
	BookingArchiveBucket string

	// Booking notification email
	EmailProvider       string
	SendGridAPIKey      string
	EmailFrom           string
	EmailFromName       string
	ClinicNotifyEmail   string
	SESConfigurationSet string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		StateBackend:        strings.ToLower(strings.TrimSpace(getEnv("STATE_BACKEND", "memory"))),
		StateTTL:            getEnvAsDuration("STATE_TTL", 72*time.Hour),
		LockBackend:         strings.ToLower(strings.TrimSpace(getEnv("LOCK_BACKEND", "local"))),
		LockTTL:             getEnvAsDuration("LOCK_TTL", 90*time.Second),
		ExternalCallTimeout: clampDuration(getEnvAsDuration("EXTERNAL_CALL_TIMEOUT", 15*time.Second), 10*time.Second, 20*time.Second),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL_NAME", "gpt-4o-mini"),
		OpenAITemperature:   getEnvAsFloat("OPENAI_TEMPERATURE", 0.2),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AppHealthBaseURL:  getEnv("APPHEALTH_BASE_URL", "https://back.homologacao.apphealth.com.br:9090/api-vizi"),
		AppHealthAPIToken: getEnv("APPHEALTH_API_TOKEN", ""),
		ClinicUnitID:      getEnv("CLINIC_UNIT_ID", ""),
		DirectoryCacheTTL: getEnvAsDuration("DIRECTORY_CACHE_TTL", 10*time.Minute),

		UseMemoryQueue:        getEnvAsBool("USE_MEMORY_QUEUE", true),
		ConversationQueueURL:  getEnv("CONVERSATION_QUEUE_URL", ""),
		ConversationJobsTable: getEnv("CONVERSATION_JOBS_TABLE", ""),
		WorkerCount:           getEnvAsInt("WORKER_COUNT", 4),
		WorkerInProcess:       getEnvAsBool("WORKER_IN_PROCESS", true),

		ZAPIInstanceID:       getEnv("ZAPI_INSTANCE_ID", ""),
		ZAPIInstanceToken:    getEnv("ZAPI_INSTANCE_TOKEN", ""),
		ZAPIClientToken:      getEnv("ZAPI_CLIENT_TOKEN", ""),
		N8NWebhookURL:        getEnv("N8N_WEBHOOK_URL", ""),
		SessionRatePerMinute: getEnvAsInt("SESSION_RATE_PER_MINUTE", 20),

		WhatsAppAccessToken:   getEnv("WHATSAPP_API_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v19.0"),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),

		AdminJWTSecret:        getEnv("ADMIN_JWT_SECRET", ""),
		WebchatAllowedOrigins: getEnvAsList("WEBCHAT_ALLOWED_ORIGINS", nil),
		APIRatePerMinute:      getEnvAsInt("API_RATE_PER_MINUTE", 60),

		BookingArchiveBucket: getEnv("BOOKING_ARCHIVE_BUCKET", ""),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:           getEnv("EMAIL_FROM", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Agenda Health AI"),
		ClinicNotifyEmail:   getEnv("CLINIC_NOTIFY_EMAIL", ""),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
