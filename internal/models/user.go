package models

import "time"

// UserRole represents the principal roles known to the platform.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleClient   UserRole = "CLIENT"
	RoleProvider UserRole = "PROVIDER"
)

// Perspective maps a principal role onto a booking perspective.
// Admin has no booking perspective and returns the empty value.
func (r UserRole) Perspective() Perspective {
	switch r {
	case RoleClient:
		return PerspectiveClient
	case RoleProvider:
		return PerspectiveProvider
	default:
		return ""
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	CompanyName  string     `db:"company_name" json:"company_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
