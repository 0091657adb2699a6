package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

// ChannelAPI tags turns that arrive through the synchronous API.
const ChannelAPI = "api"

type turnRunner interface {
	HandleTurn(ctx context.Context, in scheduling.Inbound) (scheduling.Outbound, error)
}

// ConversationHandler runs turns inline and returns the reply in the response.
type ConversationHandler struct {
	engine turnRunner
	logger *logging.Logger
}

// NewConversationHandler creates the handler.
func NewConversationHandler(engine turnRunner, logger *logging.Logger) *ConversationHandler {
	if engine == nil {
		panic("handlers: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationHandler{engine: engine, logger: logger.WithComponent("conversation_api")}
}

// MessageRequest is the body of POST /v1/conversations/{sessionID}/messages.
type MessageRequest struct {
	Text    string `json:"text"`
	Contact string `json:"contact,omitempty"`
}

// MessageResponse carries the assistant reply for one turn.
type MessageResponse struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Reply     string `json:"reply"`
}

// PostMessage handles POST /v1/conversations/{sessionID}/messages.
func (h *ConversationHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id required")
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msgID := uuid.NewString()
	out, err := h.engine.HandleTurn(r.Context(), scheduling.Inbound{
		SessionID: sessionID,
		MessageID: msgID,
		Text:      req.Text,
		Contact:   req.Contact,
		Channel:   ChannelAPI,
	})
	if err != nil {
		h.logger.WithSession(sessionID).Error("turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{SessionID: out.SessionID, MessageID: msgID, Reply: out.Text})
}
