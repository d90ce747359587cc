package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/RichardoC/support-widget/internal/conversation"
	"github.com/RichardoC/support-widget/internal/models"
	"github.com/RichardoC/support-widget/internal/session"
	"github.com/RichardoC/support-widget/internal/support"
)

type Handler struct {
	client *support.Client
	log    *conversation.Log
	store  session.Store
	logger *zap.Logger
}

func NewHandler(client *support.Client, log *conversation.Log, store session.Store, logger *zap.Logger) *Handler {
	return &Handler{
		client: client,
		log:    log,
		store:  store,
		logger: logger,
	}
}

type MessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	Message   models.Message `json:"message"`
	SessionID string         `json:"session_id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/message", h.HandleMessage)
	r.Get("/messages", h.GetMessages)
	r.Get("/session", h.GetSession)
	r.Delete("/session", h.ResetSession)
}

// HandleMessage runs one exchange. The user's line is logged before the
// backend is called so it stays visible whatever the outcome.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	text := strings.TrimSpace(req.Content)
	if text == "" {
		h.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	h.log.AppendUser(text)
	out := h.client.Send(r.Context(), text)
	msg, _ := h.log.AppendOutcome(out)

	switch o := out.(type) {
	case support.Reply:
		h.respondJSON(w, http.StatusOK, MessageResponse{Message: msg, SessionID: o.SessionID})
	case support.Failure:
		h.logger.Warn("Failed to reach support backend",
			zap.Int("status", o.StatusCode),
			zap.String("error", o.Message))
		h.respondJSON(w, http.StatusBadGateway, MessageResponse{Message: msg, Error: o.Message})
	default:
		h.respondError(w, http.StatusBadRequest, "content is required")
	}
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages := h.log.Entries()

	h.logger.Debug("Retrieved messages",
		zap.Int("count", len(messages)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))

	h.respondJSON(w, http.StatusOK, messages)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, state := h.client.Session()
	h.respondJSON(w, http.StatusOK, SessionResponse{SessionID: id, State: string(state)})
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	h.logger.Info("Session cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
