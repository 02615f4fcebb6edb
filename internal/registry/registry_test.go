package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

type backend struct {
	name string
	new  func(t *testing.T) Registry
}

func backends() []backend {
	return []backend{
		{name: "memory", new: func(t *testing.T) Registry { return NewMemory() }},
		{name: "redis", new: func(t *testing.T) Registry {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { rdb.Close() })
			return NewRedis(rdb, "test")
		}},
	}
}

func TestRegistry_PutResolveRevoke(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			reg := b.new(t)

			require.NoError(t, reg.Put(ctx, "tok-a", 1))
			id, err := reg.Resolve(ctx, "tok-a")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), id)

			// resolve does not use the token up
			id, err = reg.Resolve(ctx, "tok-a")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), id)

			require.NoError(t, reg.Revoke(ctx, "tok-a"))
			_, err = reg.Resolve(ctx, "tok-a")
			assert.ErrorIs(t, err, ErrTokenNotFound)

			// idempotent
			require.NoError(t, reg.Revoke(ctx, "tok-a"))
			require.NoError(t, reg.Revoke(ctx, "never-issued"))
		})
	}
}

func TestRegistry_PutIsUpsert(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			reg := b.new(t)

			require.NoError(t, reg.Put(ctx, "tok", 1))
			require.NoError(t, reg.Put(ctx, "tok", 2))
			id, err := reg.Resolve(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), id)

			// the token moved to user 2, so revoking user 1 must leave it alone
			require.NoError(t, reg.RevokeUser(ctx, 1))
			id, err = reg.Resolve(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), id)

			require.NoError(t, reg.RevokeUser(ctx, 2))
			_, err = reg.Resolve(ctx, "tok")
			assert.ErrorIs(t, err, ErrTokenNotFound)
		})
	}
}

func TestRegistry_ConsumeOnce(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			reg := b.new(t)

			require.NoError(t, reg.Put(ctx, "tok", 5))
			id, err := reg.Consume(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, uint64(5), id)

			_, err = reg.Consume(ctx, "tok")
			assert.ErrorIs(t, err, ErrTokenNotFound)
			_, err = reg.Resolve(ctx, "tok")
			assert.ErrorIs(t, err, ErrTokenNotFound)
		})
	}
}

func TestRegistry_ConsumeConcurrentSingleWinner(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			reg := b.new(t)
			require.NoError(t, reg.Put(ctx, "shared", 9))

			const n = 16
			var (
				wg       sync.WaitGroup
				start    = make(chan struct{})
				wins     atomic.Int32
				notFound atomic.Int32
			)
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					<-start
					_, err := reg.Consume(ctx, "shared")
					switch {
					case err == nil:
						wins.Add(1)
					case assert.ErrorIs(t, err, ErrTokenNotFound):
						notFound.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
			assert.Equal(t, int32(n-1), notFound.Load())
		})
	}
}

func TestRegistry_ConcurrentSessionsDoNotInterfere(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			reg := b.new(t)

			const n = 32
			var wg sync.WaitGroup
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func(i int) {
					defer wg.Done()
					tok := "tok-" + string(rune('A'+i))
					assert.NoError(t, reg.Put(ctx, tok, uint64(i+1)))
					if i%2 == 0 {
						assert.NoError(t, reg.Revoke(ctx, tok))
					}
				}(i)
			}
			wg.Wait()

			for i := 0; i < n; i++ {
				tok := "tok-" + string(rune('A'+i))
				id, err := reg.Resolve(ctx, tok)
				if i%2 == 0 {
					assert.ErrorIs(t, err, ErrTokenNotFound, tok)
					continue
				}
				require.NoError(t, err, tok)
				assert.Equal(t, uint64(i+1), id)
			}
		})
	}
}

func TestRegistry_RevokeUser(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			reg := b.new(t)

			require.NoError(t, reg.Put(ctx, "u1-a", 1))
			require.NoError(t, reg.Put(ctx, "u1-b", 1))
			require.NoError(t, reg.Put(ctx, "u2-a", 2))

			require.NoError(t, reg.RevokeUser(ctx, 1))

			_, err := reg.Resolve(ctx, "u1-a")
			assert.ErrorIs(t, err, ErrTokenNotFound)
			_, err = reg.Resolve(ctx, "u1-b")
			assert.ErrorIs(t, err, ErrTokenNotFound)
			id, err := reg.Resolve(ctx, "u2-a")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), id)

			require.NoError(t, reg.RevokeUser(ctx, 42))
		})
	}
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg := NewMemory(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	require.NoError(t, reg.Put(ctx, "tok", 1))
	_, err := reg.Resolve(ctx, "tok")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = reg.Consume(ctx, "tok")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Equal(t, 0, reg.Len())
}

func TestMemory_NoTTLByDefault(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	reg := NewMemory(WithClock(func() time.Time { return now }))

	require.NoError(t, reg.Put(ctx, "tok", 1))
	now = now.Add(10 * 365 * 24 * time.Hour)
	_, err := reg.Resolve(ctx, "tok")
	assert.NoError(t, err)
}

func TestRedis_TTLAndHashedKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reg := NewRedis(rdb, "rt", WithTTL(time.Minute))

	require.NoError(t, reg.Put(ctx, "raw-token-value", 3))

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "raw-token-value")
	}

	mr.FastForward(2 * time.Minute)
	_, err := reg.Resolve(ctx, "raw-token-value")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedis_PutMovesHashBetweenUserSets(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reg := NewRedis(rdb, "rt")

	require.NoError(t, reg.Put(ctx, "tok", 1))
	require.NoError(t, reg.Put(ctx, "tok", 2))

	h := utils.HashToken("tok")
	n, err := rdb.SIsMember(ctx, "rt:user:1", h).Result()
	require.NoError(t, err)
	assert.False(t, n)
	n, err = rdb.SIsMember(ctx, "rt:user:2", h).Result()
	require.NoError(t, err)
	assert.True(t, n)
}
