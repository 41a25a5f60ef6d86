// Package redisstore is the Redis report cache backend, used when several
// API instances should share one cache. Redis faults never propagate to the
// read path: a failed Get is a miss, failed Set/Del are logged and dropped.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eggbucket/admin-api/internal/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

type Store struct {
	rdb        *redis.Client
	log        zerolog.Logger
	defaultTTL time.Duration
	opTimeout  time.Duration
}

func New(ctx context.Context, addr string, log zerolog.Logger, defaultTTL, opTimeout time.Duration, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     32,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	for _, f := range opts {
		f(ro)
	}
	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, log: log, defaultTTL: defaultTTL, opTimeout: opTimeout}, nil
}

func (s *Store) withTimeout() (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *Store) Get(key string) ([]byte, bool) {
	ctx, cancel := s.withTimeout()
	defer cancel()

	start := time.Now()
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// A plain miss is a healthy cache op.
		observability.ObserveCacheOp("get", nil, time.Since(start).Seconds())
		return nil, false
	}
	observability.ObserveCacheOp("get", err, time.Since(start).Seconds())
	if err != nil {
		// Never block the read path on a cache fault.
		s.log.Warn().Err(err).Str("key", key).Msg("redis get failed; treating as miss")
		return nil, false
	}
	return val, true
}

func (s *Store) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	ctx, cancel := s.withTimeout()
	defer cancel()

	start := time.Now()
	err := s.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveCacheOp("set", err, time.Since(start).Seconds())
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (s *Store) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := s.withTimeout()
	defer cancel()

	start := time.Now()
	err := s.rdb.Del(ctx, keys...).Err()
	observability.ObserveCacheOp("del", err, time.Since(start).Seconds())
	if err != nil {
		s.log.Warn().Err(err).Int("keys", len(keys)).Msg("redis del failed")
	}
}

func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
