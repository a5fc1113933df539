package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lpetrova/mira/internal/memory"
	"github.com/lpetrova/mira/internal/policy"
)

const maxMemoryFetchLimit = 200

type saveMemoryRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

type memoriesResponse struct {
	Success  bool            `json:"success"`
	Memories []memory.Memory `json:"memories"`
}

type savedMemoryResponse struct {
	Success bool          `json:"success"`
	Memory  memory.Memory `json:"memory"`
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	userID := authedUser(r)

	limit := s.cfg.MemoryFetchLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxMemoryFetchLimit {
		limit = maxMemoryFetchLimit
	}

	items, err := s.svcs.Memories.ListByUser(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", "failed to load memories")
		return
	}
	if items == nil {
		items = []memory.Memory{}
	}
	respondJSON(w, http.StatusOK, memoriesResponse{Success: true, Memories: items})
}

func (s *Server) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	userID := authedUser(r)

	var req saveMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "missing_content", "content must not be empty")
		return
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = "note"
	}

	// Memories are long-lived; strip obvious PII before they hit the store.
	content, redacted := policy.RedactPII(req.Content)

	m := memory.Memory{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Content:     content,
		PIIRedacted: redacted,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.svcs.Memories.Save(r.Context(), m); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", "failed to save memory")
		return
	}
	respondJSON(w, http.StatusCreated, savedMemoryResponse{Success: true, Memory: m})
}
