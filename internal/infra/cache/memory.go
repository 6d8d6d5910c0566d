// Package cache holds the results listing between extractions.
package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

const resultsKey = "extract:results"

// Memory keeps the listing in process. Its janitor goroutine lives as long as the process.
type Memory struct {
	mu  sync.Mutex
	gen uint64
	c   *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context) (*domain.Results, uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(resultsKey)
	if !ok {
		return nil, m.gen, false
	}
	r, ok := v.(*domain.Results)
	return r, m.gen, ok
}

// Set drops r when an Invalidate happened after gen was read.
func (m *Memory) Set(_ context.Context, gen uint64, r *domain.Results) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.c.SetDefault(resultsKey, r)
}

func (m *Memory) Invalidate(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.c.Delete(resultsKey)
}
