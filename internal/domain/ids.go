package domain

import "github.com/google/uuid"

// SubjectID is the authenticated subject extracted from JWT claims ("sub").
// Tokens issued by this service carry the user ID as subject.
type SubjectID string

// NewID returns a fresh random entity identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed entity identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
