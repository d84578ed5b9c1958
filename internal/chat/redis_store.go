package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arigen-tech/docsearch/internal/models"
)

const (
	sessionSetKey    = "chat:sessions"
	sessionKeyPrefix = "chat:session:"
)

// RedisSessionStore keeps sessions durable across restarts: one redis list
// of JSON turns per session, plus a set of live session ids.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func turnsKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":turns"
}

func (s *RedisSessionStore) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, sessionSetKey, sessionID)
	pipe.RPush(ctx, turnsKey(sessionID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	raw, err := s.client.LRange(ctx, turnsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		var turn models.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	removed, err := s.client.SRem(ctx, sessionSetKey, sessionID).Result()
	if err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	if err := s.client.Del(ctx, turnsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) ClearAll(ctx context.Context) (int, error) {
	ids, err := s.client.SMembers(ctx, sessionSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, turnsKey(id))
	}
	pipe.Del(ctx, sessionSetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}
	return len(ids), nil
}
