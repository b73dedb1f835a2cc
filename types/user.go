package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and token metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// Email is the user's email address. Unique across the system.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedOn is the timestamp when the user account was created.
	CreatedOn time.Time `json:"created_on" db:"created_on"`

	// IsAdmin marks accounts allowed to mutate users and books.
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// Token is the user's current opaque bearer token, empty when none
	// has been issued. Never exposed in API responses; the login endpoint
	// returns it in a dedicated field instead.
	Token string `json:"-" db:"token"`

	// TokenExp is when Token stops being accepted. Zero when no token has
	// been issued. A token is accepted only while the current time is
	// strictly before TokenExp.
	TokenExp time.Time `json:"-" db:"token_exp"`
}

// HasToken reports whether the user has ever been issued a token.
func (u User) HasToken() bool {
	return u.Token != ""
}
