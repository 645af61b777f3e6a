package artifacts

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/repositories/memory"
)

func TestFetchOrCompute_ComputesOnce(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(memory.NewMetadataStore())

	calls := 0
	compute := func(ctx context.Context) (map[string]float64, error) {
		calls++
		return map[string]float64{"q1": 3.25, "q3": 7.75}, nil
	}

	first, err := FetchOrCompute(ctx, cache, "ds-1", "quartiles", false, compute)
	require.NoError(t, err)

	second, err := FetchOrCompute(ctx, cache, "ds-1", "quartiles", false, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestFetchOrCompute_RecomputeOverwrites(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(memory.NewMetadataStore())

	value := "first"
	compute := func(ctx context.Context) (string, error) {
		return value, nil
	}

	got, err := FetchOrCompute(ctx, cache, "ds-1", "sample", false, compute)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	value = "second"
	got, err = FetchOrCompute(ctx, cache, "ds-1", "sample", true, compute)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	// The recomputed value is what later reads see.
	got, err = FetchOrCompute(ctx, cache, "ds-1", "sample", false, compute)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestFetchOrCompute_FailureDoesNotPoisonCache(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(memory.NewMetadataStore())

	_, err := FetchOrCompute(ctx, cache, "ds-1", "outliers", false,
		func(ctx context.Context) ([]int, error) {
			return []int{1, 2, 3}, nil
		})
	require.NoError(t, err)

	// A failed recompute must not overwrite the previously cached value.
	_, err = FetchOrCompute(ctx, cache, "ds-1", "outliers", true,
		func(ctx context.Context) ([]int, error) {
			return nil, errors.ErrQueryFailed
		})
	require.Error(t, err)
	assert.True(t, errors.IsQueryFailed(err))

	got, ok, err := Fetch[[]int](ctx, cache, "ds-1", "outliers")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestCache_HasAndInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(memory.NewMetadataStore())

	ok, err := cache.Has(ctx, "ds-1", "sample")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = FetchOrCompute(ctx, cache, "ds-1", "sample", false,
		func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)

	ok, err = cache.Has(ctx, "ds-1", "sample")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, cache.Invalidate(ctx, "ds-1", "sample"))

	ok, err = cache.Has(ctx, "ds-1", "sample")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_KeysAreEntityScoped(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(memory.NewMetadataStore())

	_, err := FetchOrCompute(ctx, cache, "ds-1", "sample", false,
		func(ctx context.Context) (string, error) { return "one", nil })
	require.NoError(t, err)

	got, err := FetchOrCompute(ctx, cache, "ds-2", "sample", false,
		func(ctx context.Context) (string, error) { return "two", nil })
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	assert.Equal(t, "ds-1:sample", Key("ds-1", "sample"))
}

func TestFetchOrCompute_ConcurrentCallersCoalesce(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(memory.NewMetadataStore())

	var mu sync.Mutex
	calls := 0
	compute := func(ctx context.Context) (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := FetchOrCompute(ctx, cache, "ds-1", "quartiles", false, compute)
			assert.NoError(t, err)
			assert.Equal(t, 7, got)
		}()
	}
	wg.Wait()

	// Callers queue behind the in-flight computation and then hit the cache.
	assert.Equal(t, 1, calls)
}
