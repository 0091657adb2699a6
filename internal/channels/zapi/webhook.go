package zapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Erick-Marinho/Health-AI/internal/http/middleware"
	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// Channel is the channel name used for Z-API turns and replies.
const Channel = "zapi"

const maxWebhookBody = 1 << 20

type turnEnqueuer interface {
	EnqueueTurn(ctx context.Context, in scheduling.Inbound) (string, error)
}

// WebhookHandler accepts Z-API message callbacks and queues them as turns.
type WebhookHandler struct {
	queue   turnEnqueuer
	limiter *middleware.RateLimiter
	metrics *metrics.ChannelMetrics
	logger  *logging.Logger
}

// WebhookOption customizes a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithSessionRate throttles each phone number to perMinute messages.
func WithSessionRate(perMinute int) WebhookOption {
	return func(h *WebhookHandler) {
		if perMinute > 0 {
			h.limiter = middleware.NewRateLimiter(float64(perMinute)/60, perMinute)
		}
	}
}

// WithMetrics counts accepted and dropped callbacks.
func WithMetrics(m *metrics.ChannelMetrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

// NewWebhookHandler creates the handler.
func NewWebhookHandler(queue turnEnqueuer, logger *logging.Logger, opts ...WebhookOption) *WebhookHandler {
	if queue == nil {
		panic("zapi: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &WebhookHandler{queue: queue, logger: logger.WithComponent("zapi")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles POST /webhooks/zapi.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.metrics.ObserveInbound(Channel, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	phone := strings.TrimSpace(payload.Phone)
	text := strings.TrimSpace(payload.MessageText())
	switch {
	case payload.FromMe, payload.IsGroup:
		h.ignore(w, "own_or_group")
		return
	case phone == "" || text == "":
		h.ignore(w, "empty")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(phone) {
		h.metrics.ObserveInbound(Channel, "throttled")
		h.logger.WithSession(phone).Warn("z-api message throttled", "message_id", payload.MessageID)
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	jobID, err := h.queue.EnqueueTurn(r.Context(), scheduling.Inbound{
		SessionID: phone,
		MessageID: strings.TrimSpace(payload.MessageID),
		Text:      text,
		Contact:   phone,
		Channel:   Channel,
	})
	if err != nil {
		h.metrics.ObserveInbound(Channel, "enqueue_failed")
		h.logger.WithSession(phone).Error("failed to enqueue z-api message", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to queue message"})
		return
	}
	h.metrics.ObserveInbound(Channel, "queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "job_id": jobID})
}

func (h *WebhookHandler) ignore(w http.ResponseWriter, reason string) {
	h.metrics.ObserveInbound(Channel, "ignored")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
