package sink

import (
	"context"
	"slices"
	"sync"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// Memory keeps the latest dataset of each category in process.
type Memory struct {
	mu       sync.RWMutex
	datasets map[string]core.Dataset
	replaces int
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{datasets: make(map[string]core.Dataset)}
}

// Name implements core.Sink.
func (m *Memory) Name() string { return "memory" }

// Replace implements core.Sink.
func (m *Memory) Replace(ctx context.Context, ds core.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := core.Dataset{
		Name:    ds.Name,
		Schema:  ds.Schema,
		Records: slices.Clone(ds.Records),
	}
	if ds.Reasons != nil {
		cp.Reasons = slices.Clone(ds.Reasons)
	}

	m.mu.Lock()
	m.datasets[ds.Name] = cp
	m.replaces++
	m.mu.Unlock()
	return nil
}

// Dataset returns the last dataset published for category.
func (m *Memory) Dataset(category string) (core.Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[category]
	return ds, ok
}

// Replaces returns how many times Replace succeeded.
func (m *Memory) Replaces() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.replaces
}

// Close implements Closer.
func (m *Memory) Close() error { return nil }
