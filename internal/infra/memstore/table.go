// Package memstore is the default in-process backend for every store port.
// Records are kept by value, so callers never share memory with the store.
package memstore

import (
	"sync"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

// table is a thread-safe, tenant-scoped collection that keeps insertion order.
type table[T any] struct {
	mu       sync.RWMutex
	resource string
	ident    func(*T) (string, domain.Tenant)
	rows     map[string]T
	order    []string
}

func newTable[T any](resource string, ident func(*T) (string, domain.Tenant)) *table[T] {
	return &table[T]{
		resource: resource,
		ident:    ident,
		rows:     make(map[string]T),
	}
}

func (t *table[T]) create(v *T) error {
	id, tenant := t.ident(v)
	if id == "" {
		return &domain.ErrValidation{Field: "id", Message: "id is required"}
	}
	if !tenant.Valid() {
		return &domain.ErrTenantRequired{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; ok {
		return &domain.ErrConflict{Message: t.resource + " already exists: " + id}
	}
	t.rows[id] = *v
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) update(v *T) error {
	id, tenant := t.ident(v)

	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.rows[id]
	if !ok {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	if _, owner := t.ident(&cur); !owner.Owns(tenant) {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	t.rows[id] = *v
	return nil
}

// modify applies fn to the stored row under the write lock, so fields fn
// does not touch keep their latest value.
func (t *table[T]) modify(tenant domain.Tenant, id string, fn func(*T)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.rows[id]
	if !ok {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	if _, owner := t.ident(&cur); !owner.Owns(tenant) {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	fn(&cur)
	t.rows[id] = cur
	return nil
}

func (t *table[T]) delete(tenant domain.Tenant, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.rows[id]
	if !ok {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	if _, owner := t.ident(&cur); !owner.Owns(tenant) {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	delete(t.rows, id)
	for i, k := range t.order {
		if k == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *table[T]) get(tenant domain.Tenant, id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur, ok := t.rows[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	if _, owner := t.ident(&cur); !owner.Owns(tenant) {
		return nil, &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	return &cur, nil
}

// find returns the first row matching fn across all tenants.
func (t *table[T]) find(fn func(*T) bool) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		row := t.rows[id]
		if fn(&row) {
			return &row, true
		}
	}
	return nil, false
}

// list returns the rows of tenant passing match (nil match keeps all).
func (t *table[T]) list(tenant domain.Tenant, match func(*T) bool) []T {
	return t.scan(func(v *T) bool {
		if _, owner := t.ident(v); !owner.Owns(tenant) {
			return false
		}
		return match == nil || match(v)
	})
}

// scan returns every row passing fn, regardless of tenant.
func (t *table[T]) scan(fn func(*T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		row := t.rows[id]
		if fn(&row) {
			out = append(out, row)
		}
	}
	return out
}
