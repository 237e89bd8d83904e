package userrepo

import (
	"context"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
)

// SortableFields lists the fields user searches may sort by.
var SortableFields = []string{"name", "createdAt"}

// Repository persists user accounts.
type Repository interface {
	searchable.SearchableRepository[domain.User]

	// FindByEmail fails with a NotFound error when no user has the email.
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	// EmailExists fails with a Conflict error when a user already has the email.
	EmailExists(ctx context.Context, email string) error
}
