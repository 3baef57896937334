package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arqioly/arqioly/pkg/retry"
)

// redisMaxUpdateAttempts bounds WATCH/MULTI attempts per Update. A lost race
// means another writer committed, so n concurrent writers need at most n.
const redisMaxUpdateAttempts = 16

// redisUpdateRetry spreads writers that lost a WATCH race.
func redisUpdateRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:   redisMaxUpdateAttempts - 1,
		InitialDelay: time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2,
		JitterFactor: 0.5,
		Retryable:    func(err error) bool { return errors.Is(err, redis.TxFailedErr) },
	}
}

// RedisStore stores each collection as a string value under prefix+key and
// serializes writers with WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	k := s.key(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("redis get %s: %w", key, err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	_, err := retry.Do(ctx, redisUpdateRetry(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.client.Watch(ctx, txf, k)
	})
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("update %s: %w", key, ErrConcurrentUpdate)
	}
	return err
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }

var _ Store = (*RedisStore)(nil)
