package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleOfficer  UserRole = "CLASSIFICATION_OFFICER"
	RoleAnalyst  UserRole = "ANALYST"
	RoleObserver UserRole = "OBSERVER"
)

// User represents an application user stored in the users table. Credential
// handling lives outside this service; only the identity attributes consumed
// by the audit snapshot are modeled here.
type User struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	FullName    string    `db:"full_name" json:"full_name"`
	Role        UserRole  `db:"role" json:"role"`
	AccessLevel string    `db:"access_level" json:"access_level"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// JWTClaims represents the JWT payload for access tokens. Role and access
// level travel in the token so the audit logger can snapshot them without a
// user-table join.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	AccessLevel string   `json:"access_level"`
	Email       string   `json:"email"`
	AuthorityID string   `json:"authority_id,omitempty"`
	NationCode  string   `json:"nation_code,omitempty"`
	jwt.RegisteredClaims
}
