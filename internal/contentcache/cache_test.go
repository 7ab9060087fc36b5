package contentcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute_ComputesOncePerKey(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int
	compute := func(context.Context) (string, error) {
		calls++
		return "a bird on a branch", nil
	}

	key := Key([]byte("image-bytes"))
	for i := 0; i < 5; i++ {
		v, err := c.GetOrCompute(ctx, key, compute)
		require.NoError(t, err)
		assert.Equal(t, "a bird on a branch", v)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCompute_IdenticalBytesShareEntry(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int
	compute := func(context.Context) (string, error) {
		calls++
		return "desc", nil
	}

	first := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	second := append([]byte(nil), first...)

	a, err := c.GetOrCompute(ctx, Key(first), compute)
	require.NoError(t, err)
	b, err := c.GetOrCompute(ctx, Key(second), compute)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, calls)
	assert.NotEqual(t, Key(first), Key([]byte("other")))
	assert.Len(t, Key(first), 32)
}

func TestGetOrCompute_FailureIsNotCached(t *testing.T) {
	c := New()
	ctx := context.Background()
	boom := errors.New("vision provider down")

	_, err := c.GetOrCompute(ctx, "k", func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCompute(ctx, "k", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGetOrCompute_ConcurrentCallersShareOneComputation(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, "same", compute)
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestGetOrCompute_Hooks(t *testing.T) {
	var hits, misses int
	c := New(WithHooks(Hooks{
		OnHit:  func() { hits++ },
		OnMiss: func() { misses++ },
	}))
	ctx := context.Background()
	compute := func(context.Context) (string, error) { return "v", nil }

	_, _ = c.GetOrCompute(ctx, "k", compute)
	_, _ = c.GetOrCompute(ctx, "k", compute)
	_, _ = c.GetOrCompute(ctx, "k", compute)

	assert.Equal(t, 1, misses)
	assert.Equal(t, 2, hits)
}

func TestRedisTier_PromotesAndPersists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tier := NewRedisTier(client, "test:")
	ctx := context.Background()

	var tierHits int
	c := New(WithTier(tier), WithHooks(Hooks{OnTierHit: func() { tierHits++ }}))
	v, err := c.GetOrCompute(ctx, "abc", func(context.Context) (string, error) { return "from provider", nil })
	require.NoError(t, err)
	assert.Equal(t, "from provider", v)

	stored, err := mr.Get("test:abc")
	require.NoError(t, err)
	assert.Equal(t, "from provider", stored)

	// A fresh process-local cache finds the value in Redis instead of recomputing.
	fresh := New(WithTier(tier), WithHooks(Hooks{OnTierHit: func() { tierHits++ }}))
	v, err = fresh.GetOrCompute(ctx, "abc", func(context.Context) (string, error) {
		t.Fatal("compute must not run when the tier has the value")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from provider", v)
	assert.Equal(t, 1, tierHits)
}

func TestRedisTier_ErrorsFallBackToCompute(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	var tierErrors int
	c := New(WithTier(NewRedisTier(client, "")), WithHooks(Hooks{OnTierError: func(error) { tierErrors++ }}))
	v, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) { return "computed", nil })
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 2, tierErrors)
}
