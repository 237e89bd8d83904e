package inmemory

import (
	"context"
	"slices"

	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
)

// SortField is a sortable field and its ascending comparator.
type SortField[E any] struct {
	Name    string
	Compare func(a, b E) int
}

// SearchConfig supplies the entity-specific parts of Search.
type SearchConfig[E any] struct {
	// Filter reports whether e matches a non-empty filter. Nil matches everything.
	Filter func(e E, filter string) bool

	// Sortable is the allow-list of fields Search may sort by.
	Sortable []SortField[E]

	// DefaultSort names one of Sortable; it is used when the requested field is
	// unset or not sortable.
	// When empty, unsorted searches keep insertion order.
	DefaultSort    string
	DefaultSortDir searchable.SortDirection
}

// SearchableRepo is a Repo with filter, sort and pagination.
type SearchableRepo[E Entity] struct {
	*Repo[E]
	cfg SearchConfig[E]
}

func NewSearchableRepo[E Entity](cfg SearchConfig[E], notFound func(id string) error) *SearchableRepo[E] {
	return &SearchableRepo[E]{Repo: NewRepo[E](notFound), cfg: cfg}
}

func (r *SearchableRepo[E]) SortableFields() []string {
	out := make([]string, 0, len(r.cfg.Sortable))
	for _, f := range r.cfg.Sortable {
		out = append(out, f.Name)
	}
	return out
}

// Search filters, sorts and paginates a snapshot of the collection.
func (r *SearchableRepo[E]) Search(ctx context.Context, p searchable.Params) (searchable.Result[E], error) {
	_ = ctx
	filtered := r.applyFilter(r.snapshot(), p.Filter())
	sorted := r.applySort(filtered, p.Sort(), p.SortDir())
	page := applyPaginate(sorted, p.Offset(), p.PerPage())
	return searchable.NewResult(page, len(filtered), p), nil
}

func (r *SearchableRepo[E]) applyFilter(items []E, filter string) []E {
	if filter == "" || r.cfg.Filter == nil {
		return items
	}
	out := make([]E, 0, len(items))
	for _, it := range items {
		if r.cfg.Filter(it, filter) {
			out = append(out, it)
		}
	}
	return out
}

func (r *SearchableRepo[E]) applySort(items []E, field string, dir searchable.SortDirection) []E {
	cmp := r.comparator(field)
	if cmp == nil {
		cmp = r.comparator(r.cfg.DefaultSort)
		dir = r.cfg.DefaultSortDir
	}
	if cmp == nil {
		return items
	}
	if dir != searchable.SortAsc {
		asc := cmp
		cmp = func(a, b E) int { return asc(b, a) }
	}
	// items is already a private copy; stable keeps insertion order on ties.
	slices.SortStableFunc(items, cmp)
	return items
}

func (r *SearchableRepo[E]) comparator(field string) func(a, b E) int {
	if field == "" {
		return nil
	}
	for _, f := range r.cfg.Sortable {
		if f.Name == field {
			return f.Compare
		}
	}
	return nil
}

func applyPaginate[E any](items []E, offset, perPage int) []E {
	if offset >= len(items) {
		return []E{}
	}
	end := offset + perPage
	if end > len(items) || end < offset {
		end = len(items)
	}
	out := make([]E, end-offset)
	copy(out, items[offset:end])
	return out
}
