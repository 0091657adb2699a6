package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/internal/observability/metrics"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// Channel is the channel name used for web chat turns and replies.
const Channel = "webchat"

const (
	sessionPrefix = "webchat:"
	historyLimit  = 50
	maxTextLength = 2000
	writeTimeout  = 10 * time.Second
)

// ErrNotConnected is returned when a reply targets a session with no open socket.
var ErrNotConnected = errors.New("webchat: session not connected")

type turnEnqueuer interface {
	EnqueueTurn(ctx context.Context, in scheduling.Inbound) (string, error)
}

type stateLoader interface {
	Load(ctx context.Context, sessionID string) (*scheduling.State, error)
}

// Handler manages web chat sockets and doubles as the channel's reply sender.
type Handler struct {
	queue   turnEnqueuer
	states  stateLoader
	metrics *metrics.ChannelMetrics
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // engine session id -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// send writes one frame. The write gives up at the context deadline, or after
// writeTimeout when the context has none, so a client that stopped reading
// cannot hold the caller.
func (c *wsConn) send(ctx context.Context, msg OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	return websocket.JSON.Send(c.conn, msg)
}

// truncate cuts text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	i := limit
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return text[:i]
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what the widget receives.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is one history entry as shown by the widget.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. states may be nil, in which case no
// history is served.
func NewHandler(queue turnEnqueuer, states stateLoader, logger *logging.Logger, m *metrics.ChannelMetrics) *Handler {
	if queue == nil {
		panic("webchat: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		queue:    queue,
		states:   states,
		metrics:  m,
		logger:   logger.WithComponent("webchat"),
		sessions: make(map[string]*wsConn),
	}
}

// SessionKey maps a widget session to the engine session id.
func SessionKey(sessionID string) string {
	return sessionPrefix + sessionID
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// HandleWebSocket serves GET /webchat/ws?session=...
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	wsc := &wsConn{conn: conn}
	ctx := r.Context()
	if !validSessionID(sessionID) {
		_ = wsc.send(ctx, OutboundMessage{Type: "error", Text: "invalid session parameter"})
		return
	}
	key := SessionKey(sessionID)

	_ = wsc.send(ctx, OutboundMessage{Type: "session", SessionID: sessionID})
	if history := h.history(ctx, key, historyLimit); len(history) > 0 {
		_ = wsc.send(ctx, OutboundMessage{Type: "history", Messages: history})
	}

	h.mu.Lock()
	h.sessions[key] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[key] == wsc {
			delete(h.sessions, key)
		}
		h.mu.Unlock()
	}()

	log := h.logger.WithSession(key)
	log.Info("connection opened")

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			log.Debug("connection closed", "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = wsc.send(ctx, OutboundMessage{Type: "pong"})
			continue
		}
		text := strings.TrimSpace(msg.Text)
		if msg.Type != "message" || text == "" {
			continue
		}
		if _, err := h.enqueue(ctx, key, text); err != nil {
			_ = wsc.send(ctx, OutboundMessage{Type: "error", Text: "Desculpe, não consegui receber sua mensagem. Tente novamente."})
			continue
		}
		_ = wsc.send(ctx, OutboundMessage{Type: "typing"})
	}
}

func (h *Handler) enqueue(ctx context.Context, key, text string) (string, error) {
	text = truncate(text, maxTextLength)
	jobID, err := h.queue.EnqueueTurn(ctx, scheduling.Inbound{
		SessionID: key,
		MessageID: uuid.NewString(),
		Text:      text,
		Channel:   Channel,
	})
	if err != nil {
		h.metrics.ObserveInbound(Channel, "enqueue_failed")
		h.logger.WithSession(key).Error("failed to enqueue message", "error", err)
		return "", err
	}
	h.metrics.ObserveInbound(Channel, "queued")
	return jobID, nil
}

// HandleMessage is the HTTP fallback: POST /webchat/messages. The reply can be
// polled at /v1/jobs/{job_id} or read from /webchat/history.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}
	if !validSessionID(req.SessionID) {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	jobID, err := h.enqueue(r.Context(), SessionKey(req.SessionID), req.Text)
	if err != nil {
		http.Error(w, "failed to queue message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":     "queued",
		"session_id": req.SessionID,
		"job_id":     jobID,
	})
}

// HandleHistory serves GET /webchat/history?session=...
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if !validSessionID(sessionID) {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	history := h.history(r.Context(), SessionKey(sessionID), 0)
	if history == nil {
		history = []HistoryMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

// history returns the last limit turns, or all of them when limit is 0.
func (h *Handler) history(ctx context.Context, key string, limit int) []HistoryMessage {
	if h.states == nil {
		return nil
	}
	state, err := h.states.Load(ctx, key)
	if err != nil {
		h.logger.WithSession(key).Warn("failed to load history", "error", err)
		return nil
	}
	turns := state.History
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryMessage{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}
	return out
}

// SendReply implements conversation.ReplySender by pushing the reply to the
// session's open socket.
func (h *Handler) SendReply(ctx context.Context, reply conversation.Reply) error {
	key := reply.SessionID
	if key == "" {
		key = reply.To
	}
	h.mu.RLock()
	wsc, ok := h.sessions[key]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	return wsc.send(ctx, OutboundMessage{
		Type:      "message",
		Role:      string(scheduling.RoleAssistant),
		Text:      reply.Text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Connected reports how many sockets are open.
func (h *Handler) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
