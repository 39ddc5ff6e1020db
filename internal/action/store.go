package action

import (
	"context"
	"sync"

	"price-oracle-dashboard/internal/domain"
)

// MemoryStore keeps the most recent intents in memory.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	intents []domain.TransactionIntent // oldest first
}

func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryStore{max: max}
}

func (m *MemoryStore) SaveIntent(_ context.Context, intent domain.TransactionIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.intents {
		if m.intents[i].ID == intent.ID {
			m.intents[i] = intent
			return nil
		}
	}
	m.intents = append(m.intents, intent)
	if len(m.intents) > m.max {
		m.intents = m.intents[len(m.intents)-m.max:]
	}
	return nil
}

// ListIntents returns up to limit intents, newest first. limit <= 0 means all.
func (m *MemoryStore) ListIntents(_ context.Context, limit int) ([]domain.TransactionIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.intents)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.TransactionIntent, 0, n)
	for i := len(m.intents) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.intents[i])
	}
	return out, nil
}
