package history

import (
	"context"
	"sync"
	"time"

	"github.com/chichastore/riskd/internal/risk"
)

// maxEntriesPerUser caps window growth for pathological users.
const maxEntriesPerUser = 1000

// MemoryProvider is an in-memory Provider for dev/test use.
type MemoryProvider struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

// NewMemoryProvider creates an in-memory history provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{entries: make(map[string][]time.Time)}
}

func (p *MemoryProvider) RecordTransaction(ctx context.Context, userID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := append(p.entries[userID], at)
	entries = prune(entries, time.Now().Add(-dayWindow))
	if len(entries) > maxEntriesPerUser {
		entries = entries[len(entries)-maxEntriesPerUser:]
	}
	p.entries[userID] = entries
	return nil
}

func (p *MemoryProvider) Stats(ctx context.Context, userID string) (risk.FrequencyStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	hourCutoff := now.Add(-hourWindow)
	dayCutoff := now.Add(-dayWindow)

	var stats risk.FrequencyStats
	for _, t := range p.entries[userID] {
		if t.After(dayCutoff) {
			stats.Last24Hours++
			if t.After(hourCutoff) {
				stats.LastHour++
			}
		}
	}
	return stats, nil
}

// prune drops entries older than the cutoff (entries are appended in time
// order, so a prefix scan suffices).
func prune(entries []time.Time, cutoff time.Time) []time.Time {
	start := 0
	for start < len(entries) && entries[start].Before(cutoff) {
		start++
	}
	return entries[start:]
}
