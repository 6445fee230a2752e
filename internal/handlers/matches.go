package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// MatchesHandler serves the match journal.
type MatchesHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewMatchesHandler(storage storage.Storage, logger *slog.Logger) *MatchesHandler {
	return &MatchesHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles read-only journal requests
// Routes:
// GET /v1/matches                     - recent matches, newest first
// GET /v1/matches/{id}                - one match
// GET /v1/matches/{id}/decisions      - the match's decisions, oldest first
func (h *MatchesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/matches"), "/")
	if path == "" {
		h.handleList(w, r, limit)
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid match ID", "id", parts[0], "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid match ID format")
		return
	}

	switch {
	case len(parts) == 1:
		h.handleRead(w, r, id)
	case len(parts) == 2 && parts[1] == "decisions":
		h.handleDecisions(w, r, id, limit)
	default:
		h.writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *MatchesHandler) handleList(w http.ResponseWriter, r *http.Request, limit int) {
	matches, err := h.storage.ListMatches(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list matches", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list matches")
		return
	}
	h.writeJSON(w, http.StatusOK, matches)
}

func (h *MatchesHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	m, err := h.storage.LoadMatch(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load match", "match_id", id.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load match")
		return
	}
	if m == nil {
		h.writeError(w, http.StatusNotFound, "Match not found")
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *MatchesHandler) handleDecisions(w http.ResponseWriter, r *http.Request, id uuid.UUID, limit int) {
	records, err := h.storage.ListDecisions(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to list decisions", "match_id", id.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list decisions")
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *MatchesHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *MatchesHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return min(n, maxListLimit), nil
}
