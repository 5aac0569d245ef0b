package models

import "time"

// Roles assignable to users.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// User is an account allowed to call the control surface.
type User struct {
	// Context is the JSON-LD @context URL
	Context string `json:"@context"`

	// Type is the JSON-LD @type (sentra:User)
	Type string `json:"@type"`

	// ID is the unique user identifier (maps to CouchDB _id)
	ID string `json:"@id"`

	// Rev is the CouchDB document revision for optimistic locking
	Rev string `json:"_rev,omitempty"`

	// Email is the unique login identifier
	Email string `json:"email"`

	// Username is the display name
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the password. Never serialized
	// to API responses.
	PasswordHash string `json:"passwordHash,omitempty"`

	// Roles are the assigned role names
	Roles []string `json:"roles"`

	// Enabled gates login
	Enabled bool `json:"enabled"`

	// Created is the account creation time
	Created time.Time `json:"created"`
}

// UserResponse is the API representation of a user without secrets.
type UserResponse struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Roles    []string  `json:"roles"`
	Enabled  bool      `json:"enabled"`
	Created  time.Time `json:"created"`
}

// Response strips credentials from the user.
func (u *User) Response() *UserResponse {
	return &UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Roles:    u.Roles,
		Enabled:  u.Enabled,
		Created:  u.Created,
	}
}
