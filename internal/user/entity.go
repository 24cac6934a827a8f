// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the durable identity record. Self-service accounts are only ever
// created through OTP verification; users are deactivated, never deleted.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	IsActive     bool      `db:"is_active"`
	IsStaff      bool      `db:"is_staff"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}
