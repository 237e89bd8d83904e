package searchable

import "context"

// Repository is the CRUD contract every entity store implements.
//
// FindByID, Update and Delete fail with a domain NotFound error when no entity has the id.
type Repository[E any] interface {
	Insert(ctx context.Context, e E) error
	FindByID(ctx context.Context, id string) (E, error)
	FindAll(ctx context.Context) ([]E, error)
	Update(ctx context.Context, e E) error
	Delete(ctx context.Context, id string) error
}

// SearchableRepository adds filtered, sorted, paginated queries.
//
// Search applies, in order: the store's filter predicate (when params carry a filter),
// sort by params.Sort if it is one of SortableFields (else the store's default order),
// then the page window [(page-1)*perPage, page*perPage). Total counts filtered items
// before pagination. Pages past the end return no items.
type SearchableRepository[E any] interface {
	Repository[E]

	SortableFields() []string
	Search(ctx context.Context, params Params) (Result[E], error)
}
