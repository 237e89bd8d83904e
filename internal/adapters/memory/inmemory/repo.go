// Package inmemory holds the generic in-memory entity store and its reference
// search implementation. Every other backend must return the same search results.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
)

// Entity is anything with a stable identifier.
type Entity interface {
	ID() string
}

// Repo is an ordered, in-memory collection of entities.
// Entities are stored and returned by value. It is safe for concurrent use.
type Repo[E Entity] struct {
	mu       sync.RWMutex
	items    []E
	notFound func(id string) error
}

// NewRepo creates an empty repository. notFound builds the error for a missing id;
// nil uses a generic message.
func NewRepo[E Entity](notFound func(id string) error) *Repo[E] {
	if notFound == nil {
		notFound = func(id string) error {
			return domain.NotFound("Entity not found using ID %s", id)
		}
	}
	return &Repo[E]{notFound: notFound}
}

// Insert appends e. Duplicate ids are not checked here.
func (r *Repo[E]) Insert(ctx context.Context, e E) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, e)
	return nil
}

// InsertIf appends e only if guard, called with the stored entities under the
// write lock, returns nil. guard must not retain or modify the slice.
func (r *Repo[E]) InsertIf(ctx context.Context, e E, guard func(stored []E) error) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if guard != nil {
		if err := guard(r.items); err != nil {
			return err
		}
	}
	r.items = append(r.items, e)
	return nil
}

func (r *Repo[E]) FindByID(ctx context.Context, id string) (E, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		var zero E
		return zero, r.notFound(id)
	}
	return r.items[i], nil
}

// FindAll returns every entity in stored order.
func (r *Repo[E]) FindAll(ctx context.Context) ([]E, error) {
	_ = ctx
	return r.snapshot(), nil
}

// Update replaces the stored entity with the same id, keeping its position.
func (r *Repo[E]) Update(ctx context.Context, e E) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(e.ID())
	if i < 0 {
		return r.notFound(e.ID())
	}
	r.items[i] = e
	return nil
}

func (r *Repo[E]) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return r.notFound(id)
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}

// Len reports the number of stored entities.
func (r *Repo[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Repo[E]) snapshot() []E {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]E, len(r.items))
	copy(out, r.items)
	return out
}

// indexOf must be called with mu held.
func (r *Repo[E]) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID() == id {
			return i
		}
	}
	return -1
}
