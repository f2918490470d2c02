package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// fixed width so timestamps sort as strings
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MemStore keeps tables in process memory. It backs local runs without a
// remote store and the tests of the layers above.
type MemStore struct {
	mu     sync.Mutex
	tables map[string][]Record
	nextID map[string]int64
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		tables: make(map[string][]Record),
		nextID: make(map[string]int64),
		now:    time.Now,
	}
}

// Seed appends rows verbatim, without assigning ids or timestamps.
func (s *MemStore) Seed(table string, rows ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], copyRecord(r))
		if id, ok := toInt64(r["id"]); ok && id > s.nextID[table] {
			s.nextID[table] = id
		}
	}
}

func (s *MemStore) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrTransport, table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]Record, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		rows = append(rows, copyRecord(r))
	}
	if opts.OrderBy != "" {
		key := opts.OrderBy
		sort.SliceStable(rows, func(i, j int) bool {
			if opts.Desc {
				return lessValue(rows[j][key], rows[i][key])
			}
			return lessValue(rows[i][key], rows[j][key])
		})
	}
	return rows, nil
}

func (s *MemStore) Create(ctx context.Context, table string, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrTransport, table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID[table]++
	row := copyRecord(rec)
	row["id"] = s.nextID[table]
	ts := s.now().UTC().Format(timestampLayout)
	row["created_at"] = ts
	row["updated_at"] = ts

	s.tables[table] = append(s.tables[table], row)
	return copyRecord(row), nil
}

func (s *MemStore) Update(ctx context.Context, table string, id int64, patch Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrTransport, table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(table, id)
	if i < 0 {
		return ErrNotFound
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		s.tables[table][i][k] = v
	}
	return nil
}

func (s *MemStore) Delete(ctx context.Context, table string, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrTransport, table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(table, id)
	if i < 0 {
		return ErrNotFound
	}
	rows := s.tables[table]
	s.tables[table] = append(rows[:i:i], rows[i+1:]...)
	return nil
}

func (s *MemStore) indexOf(table string, id int64) int {
	for i, r := range s.tables[table] {
		if rid, ok := toInt64(r["id"]); ok && rid == id {
			return i
		}
	}
	return -1
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// lessValue orders missing values first.
func lessValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b != nil
	}
	if x, ok := toInt64(a); ok {
		if y, ok := toInt64(b); ok {
			return x < y
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
