package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeMatchStarted  EventType = "match.started"
	EventTypeTickDecided   EventType = "tick.decided"
	EventTypeChatSent      EventType = "chat.sent"
	EventTypeMatchFinished EventType = "match.finished"
)

// Event is one message on a match channel.
type Event struct {
	Type     EventType        `json:"type"`
	MatchID  string           `json:"match_id"`
	Match    *state.Match     `json:"match,omitempty"`
	Decision *decision.Record `json:"decision,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Channel returns the pub/sub channel for a match.
func Channel(matchID uuid.UUID) string {
	return fmt.Sprintf("match-events:%s", matchID.String())
}

// Broadcaster publishes match events to Redis Pub/Sub for spectators
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishMatchStarted publishes a match.started event
func (b *Broadcaster) PublishMatchStarted(ctx context.Context, m *state.Match) error {
	return b.publish(ctx, m.ID, Event{Type: EventTypeMatchStarted, Match: m})
}

// PublishDecision publishes a tick.decided event
func (b *Broadcaster) PublishDecision(ctx context.Context, rec *decision.Record) error {
	return b.publish(ctx, rec.MatchID, Event{Type: EventTypeTickDecided, Decision: rec})
}

// PublishChat publishes a chat.sent event
func (b *Broadcaster) PublishChat(ctx context.Context, matchID uuid.UUID, message string) error {
	return b.publish(ctx, matchID, Event{Type: EventTypeChatSent, Message: message})
}

// PublishMatchFinished publishes a match.finished event
func (b *Broadcaster) PublishMatchFinished(ctx context.Context, m *state.Match) error {
	return b.publish(ctx, m.ID, Event{Type: EventTypeMatchFinished, Match: m})
}

func (b *Broadcaster) publish(ctx context.Context, matchID uuid.UUID, event Event) error {
	channel := Channel(matchID)
	event.MatchID = matchID.String()

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}

// Subscription delivers the events of one match.
type Subscription struct {
	pubsub *redis.PubSub
	events chan Event
	logger *slog.Logger
}

// Subscribe listens on a match channel until ctx is done or Close is called.
func (b *Broadcaster) Subscribe(ctx context.Context, matchID uuid.UUID) (*Subscription, error) {
	pubsub := b.redisClient.Subscribe(ctx, Channel(matchID))
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s := &Subscription{
		pubsub: pubsub,
		events: make(chan Event, 16),
		logger: b.logger,
	}
	go s.run(ctx)
	return s, nil
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.events)
	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.pubsub.Close()
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn("Dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case s.events <- event:
			case <-ctx.Done():
				_ = s.pubsub.Close()
				return
			}
		}
	}
}
