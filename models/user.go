// Package models defines the domain types shared by repositories, services
// and handlers, together with the request payloads and their validation.
//
// `json:"-"` keeps secrets such as password hashes out of API responses.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the account role. Only admins reach the CMS and the store back office.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is an account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Language     string     `json:"language"`
	LastSeenAt   *time.Time `json:"last_seen_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail is a deliberately loose format check; delivery is the real test.
func ValidEmail(s string) bool {
	return len(s) <= 254 && emailRegex.MatchString(s)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Validate normalizes and checks the request.
//   - Email: valid format
//   - Password: at least 8 characters
//   - Name: optional, at most 64 characters
func (r *RegisterRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if !ValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}

	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	r.Name = strings.TrimSpace(r.Name)
	if utf8.RuneCountInString(r.Name) > 64 {
		return fmt.Errorf("name must be at most 64 characters")
	}

	return nil
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ChangePasswordRequest is the body of POST /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return fmt.Errorf("current password is required")
	}
	if utf8.RuneCountInString(r.NewPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.CurrentPassword == r.NewPassword {
		return fmt.Errorf("new password must be different from the current one")
	}
	return nil
}

// UpdateRoleRequest is the body of PATCH /api/admin/users/{id}/role.
type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

func (r *UpdateRoleRequest) Validate() error {
	if !r.Role.Valid() {
		return fmt.Errorf("role must be admin or member")
	}
	return nil
}
