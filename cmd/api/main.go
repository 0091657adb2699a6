package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Erick-Marinho/Health-AI/cmd/mainconfig"
	"github.com/Erick-Marinho/Health-AI/internal/api/router"
	"github.com/Erick-Marinho/Health-AI/internal/app/bootstrap"
	"github.com/Erick-Marinho/Health-AI/internal/channels/webchat"
	"github.com/Erick-Marinho/Health-AI/internal/channels/whatsapp"
	"github.com/Erick-Marinho/Health-AI/internal/channels/zapi"
	appconfig "github.com/Erick-Marinho/Health-AI/internal/config"
	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/internal/http/handlers"
	httpmiddleware "github.com/Erick-Marinho/Health-AI/internal/http/middleware"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting health-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	reg := newRegistry()
	rt, err := bootstrap.BuildRuntime(ctx, cfg, awsCfg, reg, logger)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	chat := webchat.NewHandler(rt.Publisher, rt.Store, logger, rt.ChannelMetrics)
	senders := bootstrap.ReplySenders(cfg, logger, map[string]conversation.ReplySender{webchat.Channel: chat})

	var worker *conversation.Worker
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if cfg.WorkerInProcess {
		worker = rt.NewWorker(senders)
		worker.Start(workerCtx)
		logger.Info("conversation worker running in-process", "workers", cfg.WorkerCount)
	} else if cfg.UseMemoryQueue {
		logger.Warn("memory queue without an in-process worker; queued turns will not be processed")
	}

	apiLimiter := httpmiddleware.NewRateLimiter(float64(cfg.APIRatePerMinute)/60, cfg.APIRatePerMinute)
	defer apiLimiter.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(newRouterConfig(cfg, rt, chat, reg, apiLimiter, logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if worker != nil {
		cancelWorker()
		waitWorker(shutdownCtx, worker, logger)
	}
	logger.Info("server stopped")
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newRouterConfig(
	cfg *appconfig.Config,
	rt *bootstrap.Runtime,
	chat *webchat.Handler,
	reg *prometheus.Registry,
	apiLimiter *httpmiddleware.RateLimiter,
	logger *logging.Logger,
) *router.Config {
	admin := handlers.NewAdminSessionsHandler(rt.Store, nil, logger)
	if rt.Ledger != nil {
		admin = handlers.NewAdminSessionsHandler(rt.Store, rt.Ledger, logger)
	}

	var whatsappWebhook *whatsapp.WebhookHandler
	if cfg.WhatsAppVerifyToken != "" {
		whatsappWebhook = whatsapp.NewWebhookHandler(cfg.WhatsAppVerifyToken, rt.Publisher, logger,
			whatsapp.WithAppSecret(cfg.WhatsAppAppSecret),
			whatsapp.WithSessionRate(cfg.SessionRatePerMinute),
			whatsapp.WithMetrics(rt.ChannelMetrics),
		)
	}

	return &router.Config{
		Logger:        logger,
		Health:        handlers.NewHealthHandler(rt.Pingers()),
		Conversations: handlers.NewConversationHandler(rt.Engine, logger),
		Jobs:          handlers.NewJobsHandler(rt.Publisher, logger),
		AdminSessions: admin,
		ZAPIWebhook: zapi.NewWebhookHandler(rt.Publisher, logger,
			zapi.WithSessionRate(cfg.SessionRatePerMinute),
			zapi.WithMetrics(rt.ChannelMetrics),
		),
		WhatsAppWebhook:       whatsappWebhook,
		Webchat:               chat,
		MetricsHandler:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:       cfg.AdminJWTSecret,
		WebchatAllowedOrigins: cfg.WebchatAllowedOrigins,
		APIRateLimiter:        apiLimiter,
	}
}

func waitWorker(ctx context.Context, worker *conversation.Worker, logger *logging.Logger) {
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("conversation worker stopped")
	case <-ctx.Done():
		logger.Error("conversation worker shutdown timed out", "error", ctx.Err())
	}
}
