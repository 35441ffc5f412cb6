package domain

import (
	"errors"
	"time"
)

// Role is the fixed set of account roles.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployer Role = "employer"
	RoleStaff    Role = "staff"
	RoleMentor   Role = "mentor"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleEmployer, RoleStaff, RoleMentor, RoleAdmin}

// Valid reports whether r is one of the fixed roles.
func (r Role) Valid() bool {
	for _, x := range Roles {
		if r == x {
			return true
		}
	}
	return false
}

// User is the core user entity. PasswordHash is the bcrypt credential and is never serialized.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool
	IsVerified   bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	if !u.Role.Valid() {
		return errors.New("invalid role")
	}
	return nil
}
