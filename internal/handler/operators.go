package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andescare/careline/internal/middleware"
	"github.com/andescare/careline/internal/router"
	"github.com/andescare/careline/internal/store"
	"github.com/andescare/careline/pkg/logger"
)

// OperatorHandler exposes the operator console API: session registration,
// the waiting queue and conversation actions. The operator id comes from the
// JWT subject set by the auth middleware.
type OperatorHandler struct {
	router *router.Router
	store  *store.Store
	logger *logger.Logger
}

// NewOperatorHandler creates an operator handler.
func NewOperatorHandler(rt *router.Router, st *store.Store, log *logger.Logger) *OperatorHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &OperatorHandler{
		router: rt,
		store:  st,
		logger: log,
	}
}

// RegisterRequest is the body for POST /api/v1/operators/register.
type RegisterRequest struct {
	Name string `json:"name"`
}

// Register handles POST /api/v1/operators/register. Called by the
// connection layer whenever an operator session becomes active.
func (h *OperatorHandler) Register(w http.ResponseWriter, r *http.Request) {
	operatorID := middleware.GetOperatorID(r.Context())

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		req.Name = middleware.GetOperatorName(r.Context())
	}
	if err := middleware.ValidateOperatorName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.router.RegisterOperator(operatorID, req.Name)
	writeJSON(w, http.StatusOK, map[string]string{
		"operator_id":       operatorID,
		"broadcast_subject": "ops.broadcast",
		"notify_subject":    "ops.notify." + operatorID,
	})
}

// Deregister handles DELETE /api/v1/operators/register. The operator's
// active conversations return to the waiting queue.
func (h *OperatorHandler) Deregister(w http.ResponseWriter, r *http.Request) {
	operatorID := middleware.GetOperatorID(r.Context())
	h.router.DeregisterOperator(operatorID)
	w.WriteHeader(http.StatusNoContent)
}

// ListWaiting handles GET /api/v1/conversations/waiting, oldest first.
func (h *OperatorHandler) ListWaiting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": h.store.ListWaiting(),
	})
}

// ListMine handles GET /api/v1/conversations/mine.
func (h *OperatorHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	operatorID := middleware.GetOperatorID(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": h.store.OperatorConversations(operatorID),
	})
}

// Get handles GET /api/v1/conversations/{id}.
func (h *OperatorHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, ok := h.store.Get(conversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Take handles POST /api/v1/conversations/{id}/take, the manual pickup of a
// waiting conversation.
func (h *OperatorHandler) Take(w http.ResponseWriter, r *http.Request) {
	operatorID := middleware.GetOperatorID(r.Context())
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.router.TakeConversation(conversationID, operatorID)
	if err != nil {
		if errors.Is(err, router.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation or operator not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to take conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// SendMessageRequest is the body for POST /api/v1/conversations/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage handles POST /api/v1/conversations/{id}/messages: an operator
// reply delivered to the customer.
func (h *OperatorHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	operatorID := middleware.GetOperatorID(r.Context())
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.router.SendOperatorMessage(r.Context(), conversationID, operatorID, req.Content); err != nil {
		if errors.Is(err, router.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Release handles POST /api/v1/conversations/{id}/release, handing the
// conversation back to the bot.
func (h *OperatorHandler) Release(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.router.ReleaseToBot(conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close handles POST /api/v1/conversations/{id}/close.
func (h *OperatorHandler) Close(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.router.CloseConversation(conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
