package kv

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key loads nil", func(t *testing.T) {
		v, err := store.Load(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("update sees nil then previous value", func(t *testing.T) {
		var seen [][]byte
		for _, next := range []string{`["a"]`, `["a","b"]`} {
			err := store.Update(ctx, "letters", func(current []byte) ([]byte, error) {
				seen = append(seen, current)
				return []byte(next), nil
			})
			require.NoError(t, err)
		}
		require.Len(t, seen, 2)
		assert.Nil(t, seen[0])
		assert.JSONEq(t, `["a"]`, string(seen[1]))

		v, err := store.Load(ctx, "letters")
		require.NoError(t, err)
		assert.JSONEq(t, `["a","b"]`, string(v))
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.Update(ctx, "letters", func(current []byte) ([]byte, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		v, err := store.Load(ctx, "letters")
		require.NoError(t, err)
		assert.JSONEq(t, `["a","b"]`, string(v))
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Update(ctx, "counter", func(current []byte) ([]byte, error) {
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

		v, err := store.Load(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(writers), string(v))
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte(`[1]`), nil }))

	v, err := store.Load(ctx, "k")
	require.NoError(t, err)
	v[1] = '9'

	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(again))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Load(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
