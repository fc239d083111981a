package rules

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for dev/test use.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewMemoryStore creates an in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[string]*Rule)}
}

func (s *MemoryStore) Create(ctx context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneRule(rule)
	s.rules[rule.ID] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return cloneRule(rule), nil
}

func (s *MemoryStore) Update(ctx context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.ID]; !ok {
		return ErrRuleNotFound
	}
	s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Rule
	for _, rule := range s.rules {
		if f.Active != nil && rule.Active != *f.Active {
			continue
		}
		if f.CreatedBy != "" && rule.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, cloneRule(rule))
	}
	sortRules(out)
	return out, nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]*Rule, error) {
	active := true
	return s.List(ctx, Filter{Active: &active})
}

// sortRules orders by priority descending, creation time ascending, then
// id for a stable total order.
func sortRules(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}

func cloneRule(r *Rule) *Rule {
	cp := *r
	cp.Conditions = make([]Condition, len(r.Conditions))
	copy(cp.Conditions, r.Conditions)
	return &cp
}
