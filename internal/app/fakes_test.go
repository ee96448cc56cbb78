package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"travel_admin/internal/domain"
)

// memStore is an in-memory ResourceStore with the same soft-delete rules as
// the SQL store.
type memStore struct {
	mu      sync.Mutex
	table   string
	rows    map[int64]domain.Row
	next    int64
	failOn  string // operation name that returns failErr
	failErr error
	reads   map[string]int // First/List calls
}

func newMemStore(table string) *memStore {
	return &memStore{table: table, rows: map[int64]domain.Row{}, reads: map[string]int{}}
}

func (m *memStore) readCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[op]
}

func (m *memStore) Table() string { return m.table }

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return m.failErr
	}
	return nil
}

func (m *memStore) seed(fields domain.Fields) domain.Row {
	r, _ := m.Create(context.Background(), fields)
	return r
}

func matches(r domain.Row, f domain.Filter) bool {
	for k, want := range f {
		got := r[k]
		if set, ok := want.(domain.In); ok {
			hit := false
			for _, v := range set {
				if matches(r, domain.Filter{k: v}) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
			continue
		}
		if want == nil || got == nil {
			if want != got {
				return false
			}
			continue
		}
		a, aok := domain.ToInt64(got)
		b, bok := domain.ToInt64(want)
		if aok && bok {
			if a != b {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (m *memStore) find(f domain.Filter, withDeleted bool) (domain.Row, bool) {
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := m.rows[id]
		if !withDeleted && r["deleted_at"] != nil {
			continue
		}
		if matches(r, f) {
			return copyRow(r), true
		}
	}
	return nil, false
}

func (m *memStore) First(ctx context.Context, f domain.Filter) (domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads["first"]++
	if err := m.fail("first"); err != nil {
		return nil, err
	}
	if r, ok := m.find(f, false); ok {
		return r, nil
	}
	return nil, fmt.Errorf("%s: %w", m.table, domain.ErrNotFound)
}

func (m *memStore) FirstWithDeleted(ctx context.Context, f domain.Filter) (domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.find(f, true); ok {
		return r, nil
	}
	return nil, fmt.Errorf("%s: %w", m.table, domain.ErrNotFound)
}

func (m *memStore) List(ctx context.Context, q domain.ListQuery) (domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads["list"]++
	var out []domain.Row
	for _, r := range m.rows {
		if r["deleted_at"] == nil && matches(r, q.Filter) {
			out = append(out, copyRow(r))
		}
	}
	col := q.OrderBy
	if col == "" {
		col = "id"
	}
	sort.Slice(out, func(i, j int) bool {
		a, aok := domain.ToInt64(out[i][col])
		b, bok := domain.ToInt64(out[j][col])
		if aok && bok {
			return a < b
		}
		return fmt.Sprint(out[i][col]) < fmt.Sprint(out[j][col])
	})
	total := int64(len(out))
	if q.Limit > 0 {
		lo := min(q.Offset, len(out))
		hi := min(lo+q.Limit, len(out))
		out = out[lo:hi]
	}
	return domain.Page{Rows: out, Total: total}, nil
}

func (m *memStore) Create(ctx context.Context, fields domain.Fields) (domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create"); err != nil {
		return nil, err
	}
	m.next++
	now := time.Now().UTC()
	r := domain.Row{"id": m.next, "created_at": now, "updated_at": now, "deleted_at": nil}
	for k, v := range fields {
		r[k] = v
	}
	m.rows[m.next] = r
	return copyRow(r), nil
}

func (m *memStore) Update(ctx context.Context, id int64, fields domain.Fields) (domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update"); err != nil {
		return nil, err
	}
	r, ok := m.rows[id]
	if !ok || r["deleted_at"] != nil {
		return nil, fmt.Errorf("%s %d: %w", m.table, id, domain.ErrNotFound)
	}
	for k, v := range fields {
		r[k] = v
	}
	r["updated_at"] = time.Now().UTC()
	return copyRow(r), nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete"); err != nil {
		return err
	}
	r, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", m.table, id, domain.ErrNotFound)
	}
	if r["deleted_at"] == nil {
		r["deleted_at"] = time.Now().UTC()
	}
	return nil
}

func (m *memStore) Restore(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", m.table, id, domain.ErrNotFound)
	}
	r["deleted_at"] = nil
	return nil
}

// live counts non-deleted rows matching f.
func (m *memStore) live(f domain.Filter) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r["deleted_at"] == nil && matches(r, f) {
			n++
		}
	}
	return n
}

func (m *memStore) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func copyRow(r domain.Row) domain.Row {
	out := make(domain.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
	block   chan struct{}
}

func (a *memAudit) Insert(ctx context.Context, e domain.AuditEntry) error {
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if a.err != nil {
		return a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e.ID = int64(len(a.entries) + 1)
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) List(ctx context.Context, q domain.AuditQuery) (domain.AuditPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range a.entries {
		if q.TableName != "" && e.TableName != q.TableName {
			continue
		}
		out = append(out, e)
	}
	return domain.AuditPage{Items: out, Total: int64(len(out))}, nil
}

func (a *memAudit) all() []domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...)
}

// fakeCache stores JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	hits  int
	dels  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels++
	delete(c.store, key)
	return nil
}
