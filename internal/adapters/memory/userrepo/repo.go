package userrepo

import (
	"context"
	"strings"

	"github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/inmemory"
	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	*inmemory.SearchableRepo[domain.User]
}

var _ userrepo.Repository = (*Repo)(nil)

func NewRepo() *Repo {
	return &Repo{
		SearchableRepo: inmemory.NewSearchableRepo(inmemory.SearchConfig[domain.User]{
			Filter:         matchesName,
			Sortable:       sortFields(),
			DefaultSort:    "createdAt",
			DefaultSortDir: searchable.SortDesc,
		}, userrepo.NotFoundByID),
	}
}

// Insert stores u unless another user already has its email.
func (r *Repo) Insert(ctx context.Context, u domain.User) error {
	return r.InsertIf(ctx, u, func(stored []domain.User) error {
		for _, existing := range stored {
			if existing.Email() == u.Email() {
				return userrepo.EmailAlreadyUsed()
			}
		}
		return nil
	})
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range all {
		if u.Email() == email {
			return u, nil
		}
	}
	return domain.User{}, userrepo.NotFoundByEmail(email)
}

func (r *Repo) EmailExists(ctx context.Context, email string) error {
	all, err := r.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, u := range all {
		if u.Email() == email {
			return userrepo.EmailAlreadyUsed()
		}
	}
	return nil
}

// matchesName is a case-insensitive substring match on the user name.
func matchesName(u domain.User, filter string) bool {
	return strings.Contains(strings.ToLower(u.Name()), strings.ToLower(filter))
}

func sortFields() []inmemory.SortField[domain.User] {
	byField := map[string]func(a, b domain.User) int{
		"name": func(a, b domain.User) int {
			return strings.Compare(a.Name(), b.Name())
		},
		"createdAt": func(a, b domain.User) int {
			return a.CreatedAt().Compare(b.CreatedAt())
		},
	}
	out := make([]inmemory.SortField[domain.User], 0, len(userrepo.SortableFields))
	for _, name := range userrepo.SortableFields {
		out = append(out, inmemory.SortField[domain.User]{Name: name, Compare: byField[name]})
	}
	return out
}
