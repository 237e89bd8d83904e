package users

import (
	"time"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type SigninInput struct {
	Email    string
	Password string
}

type UpdateUserInput struct {
	ID   string
	Name string
}

type UpdatePasswordInput struct {
	ID          string
	Password    string
	OldPassword string
}

// ListUsersInput is the raw query; normalization happens in searchable.NewParams.
type ListUsersInput = searchable.Input

// UserOutput is a user as returned by every use case. Password is the stored hash.
type UserOutput struct {
	ID        string
	Name      string
	Email     string
	Password  string
	CreatedAt time.Time
}

// PaginationOutput is one page of results.
type PaginationOutput[T any] struct {
	Items       []T
	Total       int
	CurrentPage int
	LastPage    int
	PerPage     int
}

func toOutput(u domain.User) UserOutput {
	return UserOutput{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		Password:  u.Password(),
		CreatedAt: u.CreatedAt(),
	}
}

func toPaginationOutput[E, T any](r searchable.Result[E], fn func(E) T) PaginationOutput[T] {
	mapped := searchable.Map(r, fn)
	return PaginationOutput[T]{
		Items:       mapped.Items,
		Total:       mapped.Total,
		CurrentPage: mapped.CurrentPage,
		LastPage:    mapped.LastPage,
		PerPage:     mapped.PerPage,
	}
}
