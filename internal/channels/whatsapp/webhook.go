package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Erick-Marinho/Health-AI/internal/http/middleware"
	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// Channel is the channel name used for WhatsApp Cloud API turns and replies.
const Channel = "whatsapp"

const (
	maxWebhookBody  = 1 << 20
	signatureHeader = "X-Hub-Signature-256"
)

type turnEnqueuer interface {
	EnqueueTurn(ctx context.Context, in scheduling.Inbound) (string, error)
}

// WebhookHandler serves the Meta verification handshake and queues inbound
// text messages as turns. Delivery statuses are only logged.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	queue       turnEnqueuer
	limiter     *middleware.RateLimiter
	metrics     *metrics.ChannelMetrics
	logger      *logging.Logger
}

// WebhookOption customizes a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithAppSecret makes the handler reject callbacks whose X-Hub-Signature-256
// does not match the app secret.
func WithAppSecret(secret string) WebhookOption {
	return func(h *WebhookHandler) { h.appSecret = strings.TrimSpace(secret) }
}

// WithSessionRate throttles each phone number to perMinute messages.
func WithSessionRate(perMinute int) WebhookOption {
	return func(h *WebhookHandler) {
		if perMinute > 0 {
			h.limiter = middleware.NewRateLimiter(float64(perMinute)/60, perMinute)
		}
	}
}

func WithMetrics(m *metrics.ChannelMetrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

// NewWebhookHandler creates the handler. verifyToken must match the token
// configured in the Meta app.
func NewWebhookHandler(verifyToken string, queue turnEnqueuer, logger *logging.Logger, opts ...WebhookOption) *WebhookHandler {
	if queue == nil {
		panic("whatsapp: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &WebhookHandler{
		verifyToken: strings.TrimSpace(verifyToken),
		queue:       queue,
		logger:      logger.WithComponent("whatsapp"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleVerification answers GET /webhooks/whatsapp with hub.challenge.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	if mode == "" || token == "" {
		http.Error(w, "missing verification parameters", http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || h.verifyToken == "" || !hmac.Equal([]byte(token), []byte(h.verifyToken)) {
		h.logger.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, q.Get("hub.challenge"))
}

// HandleInbound handles POST /webhooks/whatsapp. Meta retries non-2xx
// responses, so only a failed enqueue returns 500.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get(signatureHeader)) {
		h.metrics.ObserveInbound(Channel, "unauthorized")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.metrics.ObserveInbound(Channel, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	queued, failed := 0, 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, st := range change.Value.Statuses {
				h.logger.Info("delivery status", "message_id", st.ID, "status", st.Status)
			}
			for _, msg := range change.Value.Messages {
				switch h.route(r.Context(), msg) {
				case "queued":
					queued++
				case "enqueue_failed":
					failed++
				}
			}
		}
	}

	if failed > 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to queue message"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "received", "queued": queued})
}

// route queues one message and returns the inbound outcome it recorded.
func (h *WebhookHandler) route(ctx context.Context, msg Message) string {
	phone := strings.TrimSpace(msg.From)
	text := ""
	if msg.Type == "text" && msg.Text != nil {
		text = strings.TrimSpace(msg.Text.Body)
	}
	outcome := h.enqueue(ctx, phone, text, msg)
	h.metrics.ObserveInbound(Channel, outcome)
	return outcome
}

func (h *WebhookHandler) enqueue(ctx context.Context, phone, text string, msg Message) string {
	log := h.logger.WithSession(phone)
	switch {
	case phone == "":
		return "ignored"
	case text == "":
		log.Info("unsupported message type ignored", "type", msg.Type, "message_id", msg.ID)
		return "ignored"
	case h.limiter != nil && !h.limiter.Allow(phone):
		log.Warn("whatsapp message throttled", "message_id", msg.ID)
		return "throttled"
	}
	if _, err := h.queue.EnqueueTurn(ctx, scheduling.Inbound{
		SessionID: phone,
		MessageID: strings.TrimSpace(msg.ID),
		Text:      text,
		Contact:   phone,
		Channel:   Channel,
	}); err != nil {
		log.Error("failed to enqueue whatsapp message", "error", err)
		return "enqueue_failed"
	}
	return "queued"
}

// VerifySignature checks an X-Hub-Signature-256 value ("sha256=<hex>").
func VerifySignature(appSecret string, body []byte, signature string) bool {
	sigHex, ok := strings.CutPrefix(signature, "sha256=")
	if appSecret == "" || !ok || sigHex == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(sigHex)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
