package types

import "time"

// Roles recognized by the authorization layer.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminUsername is the reserved account that anchors the administrative
// role. It is seeded at startup and can never be deleted.
const AdminUsername = "admin"

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address. Optional for self-signup.
	Email string `json:"email" db:"email"`

	// Role is the user's authorization level ("admin" or "user").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the user holds the administrative role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
