package domain

import "github.com/google/uuid"

// UserID uniquely identifies a user within the system.
// It is a thin wrapper around uuid.UUID to provide type safety at the domain layer.
type UserID uuid.UUID

// String returns the canonical textual form of the id.
func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText lets UserID render as a plain uuid string in JSON documents.
func (id UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// User is the authenticated identity attached to a request.
type User struct {
	// ID is the user id carried in the token subject.
	ID UserID `json:"id"`
	// Scopes are the space separated scopes granted by the token, if any.
	Scopes []string `json:"scopes,omitempty"`
}
