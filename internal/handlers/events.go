package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/internal/services/events"
)

const keepaliveInterval = 30 * time.Second

// Subscriber is implemented by events.Broadcaster.
type Subscriber interface {
	Subscribe(ctx context.Context, matchID uuid.UUID) (*events.Subscription, error)
}

// EventsHandler streams live match events as Server-Sent Events
type EventsHandler struct {
	subscriber Subscriber
	logger     *slog.Logger
}

func NewEventsHandler(subscriber Subscriber, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		subscriber: subscriber,
		logger:     logger,
	}
}

// ServeHTTP handles SSE requests for match events
// GET /v1/events/matches/{matchID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "events" || pathParts[2] != "matches" {
		h.writeError(w, http.StatusBadRequest, "Invalid path. Expected /v1/events/matches/{matchID}")
		return
	}

	matchID, err := uuid.Parse(pathParts[3])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid match ID format.")
		return
	}

	sub, err := h.subscriber.Subscribe(r.Context(), matchID)
	if err != nil {
		h.logger.Error("Failed to subscribe to match events", "match_id", matchID.String(), "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "Event stream unavailable.")
		return
	}
	defer func() { _ = sub.Close() }()

	h.logger.Info("SSE connection established",
		"match_id", matchID.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendSSE(w, "connected", map[string]string{
		"match_id": matchID.String(),
		"message":  "Connected to event stream",
	})

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "match_id", matchID.String())
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			h.sendSSE(w, string(event.Type), event)

		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (h *EventsHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
