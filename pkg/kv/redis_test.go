package kv

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "arqioly:"), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newMiniredisStore(t)
	exerciseStore(t, store)
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "prompts", func([]byte) ([]byte, error) {
		return []byte(`[]`), nil
	}))

	got, err := mr.Get("arqioly:prompts")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	assert.False(t, mr.Exists("prompts"))
}

func TestRedisStore_LoadError(t *testing.T) {
	store, mr := newMiniredisStore(t)
	mr.SetError("LOADING Redis is loading the dataset in memory")

	_, err := store.Load(context.Background(), "prompts")
	assert.Error(t, err)
}

func TestRedisStore_ContendedWritersAllCommit(t *testing.T) {
	store, _ := newMiniredisStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < redisMaxUpdateAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "prompts", func(current []byte) ([]byte, error) {
				n := 0
				if current != nil {
					var err error
					if n, err = strconv.Atoi(string(current)); err != nil {
						return nil, err
					}
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := store.Load(ctx, "prompts")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(redisMaxUpdateAttempts), string(v))
}
