package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (b *MemoryBackend) Write(_ context.Context, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[id] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Read(_ context.Context, id string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.records[id]
	if !ok {
		return nil, session.ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) List(context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.records))
	for id := range b.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[id]; !ok {
		return session.ErrRecordNotFound
	}
	delete(b.records, id)
	return nil
}
