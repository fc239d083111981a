package risk

import (
	"context"
	"sync"
)

// MemoryRecordStore is an in-memory RecordStore for dev/test use.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	byTx    map[string][]*Record
	byUser  map[string][]*Record
	records []*Record
}

// NewMemoryRecordStore creates an in-memory assessment record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		byTx:   make(map[string][]*Record),
		byUser: make(map[string][]*Record),
	}
}

func (s *MemoryRecordStore) Record(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records = append(s.records, &cp)
	s.byTx[rec.TransactionID] = append(s.byTx[rec.TransactionID], &cp)
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], &cp)
	return nil
}

func (s *MemoryRecordStore) ListByTransaction(ctx context.Context, transactionID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byTx[transactionID]
	out := make([]*Record, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryRecordStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byUser[userID]
	start := len(all) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}

	// Most recent first.
	out := make([]*Record, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}
