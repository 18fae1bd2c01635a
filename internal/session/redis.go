package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "cinema:session:"

// RedisStore keeps sessions in Redis with a TTL equal to the idle timeout.
// Every Touch rewrites the TTL, so the key disappears exactly when the
// session has been idle for too long.
type RedisStore struct {
	rdb  *redis.Client
	idle time.Duration
}

// NewRedisStore returns a Redis-backed store.  idle must be positive.
func NewRedisStore(rdb *redis.Client, idle time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, idle: idle}
}

func (r *RedisStore) Create(ctx context.Context, id Identity) (*Session, error) {
	now := time.Now().UTC()
	s := &Session{ID: uuid.NewString(), Identity: id, CreatedAt: now, LastSeen: now}
	if err := r.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Touch(ctx context.Context, sid string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, redisPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		// the key is gone either because it expired or was never issued
		return nil, ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	s.LastSeen = time.Now().UTC()
	if err := r.save(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, sid string) error {
	return r.rdb.Del(ctx, redisPrefix+sid).Err()
}

func (r *RedisStore) save(ctx context.Context, s *Session) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, redisPrefix+s.ID, body, r.idle).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}
