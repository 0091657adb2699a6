package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Erick-Marinho/Health-AI/internal/bookings"
	"github.com/Erick-Marinho/Health-AI/internal/http/middleware"
	"github.com/Erick-Marinho/Health-AI/internal/scheduling"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

type bookingLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]bookings.Entry, error)
}

// AdminSessionsHandler lets operators inspect and reset sessions.
type AdminSessionsHandler struct {
	store    scheduling.StateStore
	bookings bookingLister
	logger   *logging.Logger
}

// NewAdminSessionsHandler creates the handler. bookings may be nil when no
// ledger is configured.
func NewAdminSessionsHandler(store scheduling.StateStore, bookings bookingLister, logger *logging.Logger) *AdminSessionsHandler {
	if store == nil {
		panic("handlers: state store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSessionsHandler{store: store, bookings: bookings, logger: logger.WithComponent("admin")}
}

// GetSession handles GET /admin/sessions/{sessionID}.
func (h *AdminSessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	state, err := h.store.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.WithSession(sessionID).Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if state.Version == 0 {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ResetSession handles DELETE /admin/sessions/{sessionID}. The running
// operation is dropped and the history is kept.
func (h *AdminSessionsHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	log := h.logger.WithSession(sessionID)
	state, err := h.store.Load(r.Context(), sessionID)
	if err != nil {
		log.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if state.Version == 0 {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	previous := state.Phase
	state.ResetOperation()
	if err := h.store.Save(r.Context(), state); err != nil {
		if errors.Is(err, scheduling.ErrConcurrentUpdate) {
			writeError(w, http.StatusConflict, "session changed, retry")
			return
		}
		log.Error("failed to reset session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	operator := ""
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		operator = claims.Subject
	}
	log.Info("session reset by operator", "operator", operator, "previous_phase", previous)
	writeJSON(w, http.StatusOK, state)
}

// ListBookings handles GET /admin/sessions/{sessionID}/bookings.
func (h *AdminSessionsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if h.bookings == nil {
		writeError(w, http.StatusNotImplemented, "booking ledger not configured")
		return
	}
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	entries, err := h.bookings.ListBySession(r.Context(), sessionID)
	if err != nil {
		h.logger.WithSession(sessionID).Error("failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if entries == nil {
		entries = []bookings.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": entries})
}
