package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	sessionExpiryKey = "sessions:expiry"

	// DefaultSessionGrace keeps session data around after its logical expiry
	// long enough for the sweeper to release what it holds. See WithGrace.
	DefaultSessionGrace = 24 * time.Hour
)

// RedisSessionStore keeps each session in a hash and tracks logical expiry in
// a sorted set scored by expiry time in unix milliseconds.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	grace  time.Duration
	now    func() time.Time
}

func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		grace:  DefaultSessionGrace,
		now:    time.Now,
	}
}

// WithGrace sets how long session data outlives its logical expiry. Values
// below zero are ignored.
func (s *RedisSessionStore) WithGrace(d time.Duration) *RedisSessionStore {
	if d >= 0 {
		s.grace = d
	}
	return s
}

// WithClock replaces the time source, for tests.
func (s *RedisSessionStore) WithClock(now func() time.Time) *RedisSessionStore {
	s.now = now
	return s
}

// ConnectRedis opens a client and checks it with a ping.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}

func (s *RedisSessionStore) Get(ctx context.Context, sid, key string) ([]byte, bool, error) {
	v, err := s.client.HGet(ctx, sessionKey(sid), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, sid, key string, value []byte) error {
	expiresAt := s.now().Add(s.ttl)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(sid), key, value)
		pipe.Expire(ctx, sessionKey(sid), s.ttl+s.grace)
		pipe.ZAdd(ctx, sessionExpiryKey, redis.Z{
			Score:  float64(expiresAt.UnixMilli()),
			Member: sid,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session %s: %w", key, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sid, key string) error {
	if err := s.client.HDel(ctx, sessionKey(sid), key).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

func (s *RedisSessionStore) Expired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	ids, err := s.client.ZRangeByScore(ctx, sessionExpiryKey, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return ids, nil
}

func (s *RedisSessionStore) Exists(ctx context.Context, sid string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sid)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

func (s *RedisSessionStore) Destroy(ctx context.Context, sid string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sid))
		pipe.ZRem(ctx, sessionExpiryKey, sid)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
