package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/internal/services/events"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
)

// decisionHistory is how many past decisions the console loads on start.
const decisionHistory = 200

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	// a degraded journal still serves the event stream
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusServiceUnavailable
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("API error: %s", errResp.Error)
		}
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func listMatches(client *http.Client, baseURL string, limit int) ([]*state.Match, error) {
	var matches []*state.Match
	err := getJSON(client, fmt.Sprintf("%s/v1/matches?limit=%d", baseURL, limit), &matches)
	return matches, err
}

func getMatch(client *http.Client, baseURL string, matchID uuid.UUID) (*state.Match, error) {
	var m state.Match
	if err := getJSON(client, fmt.Sprintf("%s/v1/matches/%s", baseURL, matchID), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func listDecisions(client *http.Client, baseURL string, matchID uuid.UUID, limit int) ([]*decision.Record, error) {
	var records []*decision.Record
	err := getJSON(client, fmt.Sprintf("%s/v1/matches/%s/decisions?limit=%d", baseURL, matchID, limit), &records)
	return records, err
}

// listenToSSE connects to the match event stream and forwards every match
// event to eventChan until the stream ends or ctx is done.
func listenToSSE(ctx context.Context, client *http.Client, baseURL string, matchID uuid.UUID, eventChan chan<- events.Event) error {
	url := fmt.Sprintf("%s/v1/events/matches/%s", baseURL, matchID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var eventType, data string

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if eventType != "" && eventType != "connected" {
				var ev events.Event
				if err := json.Unmarshal([]byte(data), &ev); err == nil {
					select {
					case eventChan <- ev:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			eventType, data = "", ""
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
