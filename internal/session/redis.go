package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"avigoBot/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

// Ключ сессии: session:{tg_user_id}
const keySession = "session:%d"

// RedisStore хранит сессии в Redis. Используется вместо MemoryStore,
// когда бот развернут более чем в одном экземпляре.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore создает хранилище сессий поверх Redis.
// ttl = 0 отключает истечение сессий.
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

// Get возвращает сессию пользователя либо новую сессию на шаге idle
func (s *RedisStore) Get(ctx context.Context, tgUserID int64) (*models.Session, error) {
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(keySession, tgUserID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewSession(tgUserID), nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Put сохраняет сессию пользователя
func (s *RedisStore) Put(ctx context.Context, session *models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.rdb.Set(ctx, fmt.Sprintf(keySession, session.TgUserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}

	return nil
}
