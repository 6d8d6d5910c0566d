package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

func TestMemory_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	_, gen, ok := m.Get(ctx)
	assert.False(t, ok)

	want := &domain.Results{TotalAnalyses: 1, Results: []domain.Summary{{ID: 7, Text: "x..."}}}
	m.Set(ctx, gen, want)
	got, _, ok := m.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)

	m.Invalidate(ctx)
	_, _, ok = m.Get(ctx)
	assert.False(t, ok)
}

func TestMemory_SetAfterInvalidateIsDropped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	_, gen, _ := m.Get(ctx)
	// an extraction commits while the listing is being read
	m.Invalidate(ctx)
	m.Set(ctx, gen, &domain.Results{TotalAnalyses: 1})

	_, next, ok := m.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, gen+1, next)

	m.Set(ctx, next, &domain.Results{TotalAnalyses: 2})
	got, _, ok := m.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, got.TotalAnalyses)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20 * time.Millisecond)
	_, gen, _ := m.Get(ctx)
	m.Set(ctx, gen, &domain.Results{})

	assert.Eventually(t, func() bool {
		_, _, ok := m.Get(ctx)
		return !ok
	}, time.Second, 10*time.Millisecond)
}
