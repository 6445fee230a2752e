package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/jwebster45206/gptstar/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	matchKeyPrefix    = "match:"
	decisionKeyPrefix = "decisions:"
	matchIndexKey     = "matches"

	// Journals outlive the match so they can be reviewed afterwards.
	journalTTL = 7 * 24 * time.Hour
)

// RedisStorage implements the Storage interface using Redis
type RedisStorage struct {
	client        *redis.Client
	logger        *slog.Logger
	decisionLimit int64
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis journal. redisURL is either a
// redis:// URL or a plain host:port address.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStorageFromClient(redis.NewClient(opts), logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client:        client,
		logger:        logger,
		decisionLimit: storage.DefaultDecisionLimit,
	}
}

// ParseRedisURL accepts redis:// and rediss:// URLs as well as host:port.
func ParseRedisURL(redisURL string) (*redis.Options, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return opts, nil
	}
	if redisURL == "" {
		return nil, errors.New("redis URL is empty")
	}
	return &redis.Options{Addr: redisURL}, nil
}

// Client exposes the underlying client so the event broadcaster can share
// the connection pool.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Match operations

func (r *RedisStorage) SaveMatch(ctx context.Context, m *state.Match) error {
	m.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(m)
	if err != nil {
		r.logger.Error("Failed to marshal match", "match_id", m.ID, "error", err)
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, matchKeyPrefix+m.ID.String(), data, journalTTL)
	pipe.ZAdd(ctx, matchIndexKey, redis.Z{
		Score:  float64(m.StartedAt.UnixMilli()),
		Member: m.ID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save match", "match_id", m.ID, "error", err)
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadMatch(ctx context.Context, id uuid.UUID) (*state.Match, error) {
	data, err := r.client.Get(ctx, matchKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load match", "match_id", id, "error", err)
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	var m state.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &m, nil
}

// ListMatches returns the most recently started matches. Index entries whose
// match key has expired are pruned.
func (r *RedisStorage) ListMatches(ctx context.Context, limit int) ([]*state.Match, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRevRange(ctx, matchIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	matches := make([]*state.Match, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Invalid match id in index", "match_id", raw)
			continue
		}
		m, err := r.LoadMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			r.client.ZRem(ctx, matchIndexKey, raw)
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Decision operations

func (r *RedisStorage) AppendDecision(ctx context.Context, rec *decision.Record) error {
	data, err := rec.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	key := decisionKeyPrefix + rec.MatchID.String()
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -r.decisionLimit, -1)
	pipe.Expire(ctx, key, journalTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append decision", "match_id", rec.MatchID, "error", err)
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListDecisions(ctx context.Context, matchID uuid.UUID, limit int) ([]*decision.Record, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := r.client.LRange(ctx, decisionKeyPrefix+matchID.String(), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}

	records := make([]*decision.Record, 0, len(raw))
	for _, item := range raw {
		rec, err := decision.FromJSON([]byte(item))
		if err != nil {
			r.logger.Warn("Skipping malformed decision", "match_id", matchID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
