package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/chat"
	"github.com/RichardoC/thinkstream/internal/db"
	"github.com/RichardoC/thinkstream/internal/llm"
	"github.com/RichardoC/thinkstream/internal/models"
)

// Version is reported by the debug endpoint.
const Version = "2.0.0"

const maxBodyBytes = 1 << 20

type Handler struct {
	store  db.Store
	chat   *chat.Orchestrator
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(store db.Store, orchestrator *chat.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		chat:   orchestrator,
		logger: logger,
		now:    time.Now,
	}
}

type MessageRequest struct {
	Content   string `json:"content"`
	Role      string `json:"role"`
	Model     string `json:"model"`
	SessionID *int64 `json:"sessionId"`
}

type SessionRequest struct {
	Title string `json:"title"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type debugResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Store     string `json:"store"`
}

func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, debugResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   Version,
		Store:     h.store.Backend(),
	})
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, llm.Models())
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("sessionId")
	if raw == "" {
		h.writeError(w, r, &db.ValidationError{Field: "sessionId", Reason: "query parameter is required"})
		return
	}
	sessionID, err := parseID(raw)
	if err != nil {
		h.writeError(w, r, &db.ValidationError{Field: "sessionId", Reason: "must be a positive integer"})
		return
	}

	messages, err := h.store.GetMessages(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Debug("Retrieved messages",
		zap.Int64("sessionId", sessionID),
		zap.Int("count", len(messages)))
	h.writeJSON(w, http.StatusOK, messages)
}

// PostMessage runs one chat turn and streams its events as SSE.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Role != "" && req.Role != string(models.RoleUser) {
		h.writeError(w, r, &db.ValidationError{Field: "role", Reason: `must be "user"`})
		return
	}
	if req.SessionID != nil && *req.SessionID <= 0 {
		h.writeError(w, r, &db.ValidationError{Field: "sessionId", Reason: "must be a positive integer"})
		return
	}

	in := chat.Input{Content: req.Content, Model: req.Model}
	if req.SessionID != nil {
		in.SessionID = *req.SessionID
	}

	sink := newSSESink(w)
	err := h.chat.HandleUserMessage(r.Context(), in, sink)
	if err == nil {
		return
	}
	if !sink.Started() {
		h.writeError(w, r, err)
		return
	}
	h.logger.Debug("Chat turn ended with error after streaming started", zap.Error(err))
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) GroupedSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chat.GroupSessions(sessions, h.now()))
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.store.CreateSession(r.Context(), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("Created session", zap.Int64("sessionId", session.ID))
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, &db.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	var req SessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		h.writeError(w, r, &db.ValidationError{Field: "title", Reason: "must not be empty"})
		return
	}

	if err := h.store.UpdateSessionTitle(r.Context(), id, req.Title); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, &db.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("Deleted session", zap.Int64("sessionId", id))
	h.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, &db.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	if err := h.store.ClearMessages(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &db.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps err to a status code: validation problems are 400,
// unknown ids 404, anything else 500 with the detail kept in the logs.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case db.IsValidation(err):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, db.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	default:
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
	}
	h.writeJSON(w, status, errorResponse{Message: message})
}
