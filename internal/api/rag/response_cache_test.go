package rag

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

func TestMemoryCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute)

	_, found := cache.Get(ctx, "missing")
	assert.False(t, found)

	answer := &types.RAGAnswer{
		Answer:    "Stay at the Harbor Inn.",
		Metadata:  types.AnswerMetadata{SourceCount: 3},
		CreatedAt: time.Now(),
	}
	cache.Set(ctx, "fp-1", answer)

	got, found := cache.Get(ctx, "fp-1")
	require.True(t, found)
	assert.Equal(t, answer.Answer, got.Answer)
	assert.Equal(t, 3, got.Metadata.SourceCount)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(20 * time.Millisecond)

	cache.Set(ctx, "fp-1", &types.RAGAnswer{Answer: "short lived"})

	_, found := cache.Get(ctx, "fp-1")
	require.True(t, found)

	time.Sleep(60 * time.Millisecond)

	_, found = cache.Get(ctx, "fp-1")
	assert.False(t, found)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("fp-%d", n%5)
			cache.Set(ctx, key, &types.RAGAnswer{Answer: key})
			if got, found := cache.Get(ctx, key); found {
				assert.Equal(t, key, got.Answer)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("fp-%d", i)
		got, found := cache.Get(ctx, key)
		require.True(t, found)
		assert.Equal(t, key, got.Answer)
	}
}
