package gateway

import (
	"context"
	"sync"
)

// Memory is an in-memory Gateway keeping records in insertion order.
// It backs unit tests and local development without Postgres.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order   []string
	records map[string]Record
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{records: make(map[string]Record)}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Get(ctx context.Context, collection, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := c.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Query(ctx context.Context, collection string, filters Filters, offset, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}

	var out []Record
	skipped := 0
	for _, key := range c.order {
		rec := c.records[key]
		if !matchFilters(rec, filters) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, cloneRecord(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, collection string, filters Filters) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return 0, nil
	}
	count := 0
	for _, key := range c.order {
		if matchFilters(c.records[key], filters) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Insert(ctx context.Context, collection, key string, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	if _, exists := c.records[key]; !exists {
		c.order = append(c.order, key)
	}
	c.records[key] = cloneRecord(record)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, key string, fields Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	rec, ok := c.records[key]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := c.records[key]; !ok {
		return ErrNotFound
	}
	delete(c.records, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) VectorSearch(ctx context.Context, collection string, vector []float64, topK int) ([]Match, error) {
	records, err := m.Query(ctx, collection, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	return rankByCosine(records, vector, topK), nil
}

func matchFilters(rec Record, filters Filters) bool {
	for field, want := range filters {
		got, ok := rec[field]
		if !ok {
			return false
		}
		switch typed := want.(type) {
		case []string:
			found := false
			for _, candidate := range typed {
				if got == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
