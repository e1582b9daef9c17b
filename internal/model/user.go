// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created inactive: registration stores the record with
// IsActive=false and a freshly generated ConfirmationToken. Following the
// emailed confirmation link flips IsActive to true and clears the token, so
// the token is usable exactly once. Login is refused until that happens.
//
// WHY ConfirmationToken string (not *string)?
// A cleared token is stored as the empty string, and the empty string is
// never a valid token (we always generate a UUID), so a nullable pointer
// buys nothing. The repository's FindByConfirmationToken rejects ""
// explicitly before touching the database.
//
// The `bson` tags control how the Mongo driver serializes the struct, the
// same way `json` tags drive encoding/json. PasswordHash is excluded from
// JSON — it must never leave the server.
type User struct {
	ID                string    `json:"id"        bson:"_id"`
	Username          string    `json:"username"  bson:"username"`
	Email             string    `json:"email"     bson:"email"`
	PasswordHash      string    `json:"-"         bson:"hashed_password"`
	IsActive          bool      `json:"isActive"  bson:"is_active"`
	ConfirmationToken string    `json:"-"         bson:"confirmation_token"`
	CreatedAt         time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updated_at"`
}

// PublicUser is the subset of User that is safe to return to the client
// (GET /auth/users/me) and to render in templates.
type PublicUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the externally visible view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{Username: u.Username, Email: u.Email}
}
