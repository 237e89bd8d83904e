package domain

import (
	"errors"
	"net/mail"
	"time"
	"unicode/utf8"
)

const (
	maxUserNameLen     = 255
	maxUserEmailLen    = 255
	maxUserPasswordLen = 100
)

// UserProps is the property bag of a user account. Password holds the hash, never plaintext.
type UserProps struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a registered account.
type User struct {
	Entity[UserProps]
}

// NewUser builds a validated user. A zero CreatedAt is set to the current time.
// CreatedAt is truncated to microseconds, the precision Postgres keeps.
func NewUser(props UserProps, id string) (User, error) {
	if props.CreatedAt.IsZero() {
		props.CreatedAt = time.Now().UTC()
	}
	props.CreatedAt = props.CreatedAt.Truncate(time.Microsecond)
	details := validateUserProps(props)
	if id != "" && !ValidID(id) {
		details["id"] = "must be a UUID"
	}
	if len(details) > 0 {
		return User{}, Validation("invalid user", details)
	}
	return User{Entity: NewEntity(props, id)}, nil
}

func (u User) Name() string         { return u.props.Name }
func (u User) Email() string        { return u.props.Email }
func (u User) Password() string     { return u.props.Password }
func (u User) CreatedAt() time.Time { return u.props.CreatedAt }

// Update changes the user's name.
func (u *User) Update(name string) error {
	if msg := validateUserName(name); msg != "" {
		return Validation("invalid user", map[string]any{"name": msg})
	}
	u.props.Name = name
	return nil
}

// UpdatePassword replaces the stored password hash.
func (u *User) UpdatePassword(hash string) error {
	if msg := validateUserPassword(hash); msg != "" {
		return Validation("invalid user", map[string]any{"password": msg})
	}
	u.props.Password = hash
	return nil
}

func validateUserProps(p UserProps) map[string]any {
	details := map[string]any{}
	if msg := validateUserName(p.Name); msg != "" {
		details["name"] = msg
	}
	if err := validateEmail(p.Email); err != nil {
		details["email"] = err.Error()
	}
	if msg := validateUserPassword(p.Password); msg != "" {
		details["password"] = msg
	}
	return details
}

func validateUserName(name string) string {
	switch {
	case name == "":
		return "must be non-empty"
	case utf8.RuneCountInString(name) > maxUserNameLen:
		return "must be at most 255 characters"
	}
	return ""
}

func validateUserPassword(p string) string {
	switch {
	case p == "":
		return "must be non-empty"
	case utf8.RuneCountInString(p) > maxUserPasswordLen:
		return "must be at most 100 characters"
	}
	return ""
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	if utf8.RuneCountInString(email) > maxUserEmailLen {
		return errors.New("must be at most 255 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}
