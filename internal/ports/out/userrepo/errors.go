package userrepo

import "github.com/Overland-East-Bay/user-accounts-api/internal/domain"

// Error messages shared by every Repository implementation.

func NotFoundByID(id string) error {
	return domain.NotFound("UserModel not found using ID %s", id)
}

func NotFoundByEmail(email string) error {
	return domain.NotFound("UserModel not found using email %s", email)
}

func EmailAlreadyUsed() error {
	return domain.Conflict("Email address already used")
}

// InvalidRecord reports a stored row that cannot form a user entity.
func InvalidRecord(details map[string]any) error {
	return domain.Validation("Could not convert to a user entity", details)
}
