package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/validate"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/directory"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/relay"
)

const healthTimeout = 2 * time.Second

type handlers struct {
	directory *directory.Directory
	registry  *relay.Registry
	store     chat.Store
	log       zerolog.Logger
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MarkReadRequest is the body of POST /api/chat/mark-read.
type MarkReadRequest struct {
	UserID   string `json:"userId"`
	SenderID string `json:"senderId"`
}

// MarkReadResponse reports how many messages were flagged read.
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

// HealthResponse is served by GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Operators   int    `json:"operators"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

// writeStoreError maps directory errors onto HTTP statuses.
func (h *handlers) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, validate.ErrInvalidIdentity) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error().Err(err).Msg("directory request failed")
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}

// canAccess reports whether v may read or update the conversation.
func canAccess(v Viewer, conversationID string) bool {
	return v.Role == chat.RoleOperator || v.ID == conversationID
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	v, _ := ViewerFrom(r.Context())
	conversationID := chi.URLParam(r, "userId")

	if !canAccess(v, conversationID) {
		writeJSONError(w, http.StatusForbidden, "access denied")
		return
	}

	messages, err := h.directory.History(r.Context(), conversationID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *handlers) conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.directory.ListConversations(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *handlers) markRead(w http.ResponseWriter, r *http.Request) {
	v, _ := ViewerFrom(r.Context())

	var req MarkReadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !canAccess(v, req.UserID) {
		writeJSONError(w, http.StatusForbidden, "access denied")
		return
	}

	var (
		n   int
		err error
	)
	if req.SenderID == "" {
		n, err = h.directory.MarkRead(r.Context(), req.UserID, v.ID)
	} else {
		n, err = h.directory.MarkReadFrom(r.Context(), req.UserID, req.SenderID)
	}
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MarkReadResponse{Updated: n})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Connections: h.registry.Len(),
		Operators:   h.registry.Count(chat.RoleOperator),
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("store ping failed")
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
