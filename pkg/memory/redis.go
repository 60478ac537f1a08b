package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for sessions.
	sessionKeyPrefix = "session:"

	// Default TTL for session keys.
	defaultTTL = 24 * time.Hour
)

// RedisStore implements Store on Redis. Each session is a JSON record under
// a single key with a sliding TTL. Per-session write serialization is the
// caller's responsibility (one in-flight turn per session id).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	opts   Options
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, opts Options) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		opts:   opts.normalize(),
	}
}

// FetchRecent implements Store.
func (s *RedisStore) FetchRecent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil || n <= 0 {
		return nil, nil
	}

	start := len(rec.Turns) - n
	if start < 0 {
		start = 0
	}
	return rec.Turns[start:], nil
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if rec == nil {
		now := time.Now()
		rec = &sessionRecord{
			ID:          sessionID,
			CreatedAt:   now,
			Preferences: make(map[string]string),
		}
	}
	rec.Turns = append(rec.Turns, turn)
	rec.UpdatedAt = time.Now()

	if err := s.save(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// DetectRepetition implements Store.
func (s *RedisStore) DetectRepetition(ctx context.Context, sessionID, utterance string) (bool, error) {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return isRepetition(rec.Turns, utterance, s.opts), nil
}

// Preferences implements Store.
func (s *RedisStore) Preferences(ctx context.Context, sessionID string) (map[string]string, error) {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return map[string]string{}, nil
	}
	return rec.Preferences, nil
}

// SetPreference implements Store.
func (s *RedisStore) SetPreference(ctx context.Context, sessionID, key, value string) error {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if rec == nil {
		now := time.Now()
		rec = &sessionRecord{
			ID:          sessionID,
			CreatedAt:   now,
			Preferences: make(map[string]string),
		}
	}
	rec.Preferences[key] = value
	rec.UpdatedAt = time.Now()

	if err := s.save(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// load fetches and decodes a session record. Missing sessions return nil.
// TTL is refreshed on every read.
func (s *RedisStore) load(ctx context.Context, sessionID string) (*sessionRecord, error) {
	key := s.key(sessionID)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, err
	}

	// Refresh TTL on read; losing the refresh is not an error.
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return &rec, nil
}

// save encodes and stores a session record with its TTL.
func (s *RedisStore) save(ctx context.Context, rec *sessionRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(rec.ID), val, s.ttl).Err()
}

// key constructs the Redis key for a session id.
func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}

// Verify RedisStore implements Store at compile time.
var _ Store = (*RedisStore)(nil)
