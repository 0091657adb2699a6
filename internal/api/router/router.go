package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Erick-Marinho/Health-AI/internal/channels/webchat"
	"github.com/Erick-Marinho/Health-AI/internal/channels/whatsapp"
	"github.com/Erick-Marinho/Health-AI/internal/channels/zapi"
	"github.com/Erick-Marinho/Health-AI/internal/http/handlers"
	httpmiddleware "github.com/Erick-Marinho/Health-AI/internal/http/middleware"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger         *logging.Logger
	Health         *handlers.HealthHandler
	Conversations  *handlers.ConversationHandler
	Jobs           *handlers.JobsHandler
	AdminSessions  *handlers.AdminSessionsHandler
	ZAPIWebhook    *zapi.WebhookHandler
	Webchat        *webchat.Handler
	MetricsHandler http.Handler

	// WhatsAppWebhook serves the Cloud API handshake and callbacks.
	WhatsAppWebhook *whatsapp.WebhookHandler

	AdminAuthSecret       string
	WebchatAllowedOrigins []string
	// APIRateLimiter throttles the synchronous conversation API per client IP.
	APIRateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil)
	}

	// Public endpoints (webhooks, health)
	r.Group(func(public chi.Router) {
		public.Get("/health", health.Health)
		public.Get("/ready", health.Ready)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ZAPIWebhook != nil {
			public.Method(http.MethodPost, "/webhooks/zapi", cfg.ZAPIWebhook)
		}
		if cfg.WhatsAppWebhook != nil {
			public.Get("/webhooks/whatsapp", cfg.WhatsAppWebhook.HandleVerification)
			public.Post("/webhooks/whatsapp", cfg.WhatsAppWebhook.HandleInbound)
		}
	})

	if cfg.Webchat != nil {
		r.Route("/webchat", func(chat chi.Router) {
			if len(cfg.WebchatAllowedOrigins) > 0 {
				chat.Use(httpmiddleware.CORS(cfg.WebchatAllowedOrigins))
			}
			chat.Get("/ws", cfg.Webchat.HandleWebSocket)
			chat.Post("/messages", cfg.Webchat.HandleMessage)
			chat.Get("/history", cfg.Webchat.HandleHistory)
		})
	}

	if cfg.Conversations != nil {
		r.Route("/v1/conversations", func(api chi.Router) {
			if cfg.APIRateLimiter != nil {
				api.Use(httpmiddleware.RateLimit(cfg.APIRateLimiter))
			}
			api.Use(middleware.AllowContentType("application/json"))
			api.Post("/{sessionID}/messages", cfg.Conversations.PostMessage)
		})
	}

	if cfg.Jobs != nil {
		r.Get("/v1/jobs/{jobID}", cfg.Jobs.GetJob)
	}

	if cfg.AdminSessions != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/sessions/{sessionID}", func(s chi.Router) {
				s.Get("/", cfg.AdminSessions.GetSession)
				s.Delete("/", cfg.AdminSessions.ResetSession)
				s.Get("/bookings", cfg.AdminSessions.ListBookings)
			})
		})
	}

	return r
}
