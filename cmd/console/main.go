package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// console [match-id] follows a match served by `gptstar run` with
// HTTP_PORT set. Without an id it follows the most recent match.
func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    30 * time.Second,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure gptstar is running with HTTP_PORT set.\n")
		os.Exit(1)
	}

	matchID, err := pickMatch(client, cfg.APIBaseURL, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, matchID),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func pickMatch(client *http.Client, baseURL string, args []string) (uuid.UUID, error) {
	if len(args) > 0 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid match id %q: %w", args[0], err)
		}
		return id, nil
	}

	matches, err := listMatches(client, baseURL, 1)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if len(matches) == 0 {
		return uuid.Nil, fmt.Errorf("no matches found")
	}
	return matches[0].ID, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
