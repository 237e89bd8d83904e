package searchable

// Result is one page of a search plus its pagination metadata.
type Result[E any] struct {
	Items       []E
	Total       int
	CurrentPage int
	PerPage     int
	LastPage    int

	// Echo of the normalized params that produced this page.
	Sort    string
	SortDir SortDirection
	Filter  string
}

// NewResult computes LastPage as ceil(total/perPage); it is 0 when total is 0.
func NewResult[E any](items []E, total int, p Params) Result[E] {
	if items == nil {
		items = []E{}
	}
	perPage := p.PerPage()
	lastPage := 0
	if perPage > 0 && total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	return Result[E]{
		Items:       items,
		Total:       total,
		CurrentPage: p.Page(),
		PerPage:     perPage,
		LastPage:    lastPage,
		Sort:        p.Sort(),
		SortDir:     p.SortDir(),
		Filter:      p.Filter(),
	}
}

// Map converts the page items while keeping the metadata.
func Map[E, T any](r Result[E], fn func(E) T) Result[T] {
	items := make([]T, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, fn(it))
	}
	return Result[T]{
		Items:       items,
		Total:       r.Total,
		CurrentPage: r.CurrentPage,
		PerPage:     r.PerPage,
		LastPage:    r.LastPage,
		Sort:        r.Sort,
		SortDir:     r.SortDir,
		Filter:      r.Filter,
	}
}
