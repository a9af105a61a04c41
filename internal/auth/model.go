package auth

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold. Every user has exactly
// one primary role.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleStaff   Role = "Staff"
	RoleVendor  Role = "Vendor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleVendor:
		return true
	}
	return false
}

// ParseRole normalises a raw role string, defaulting blanks to Staff.
func ParseRole(raw string) (Role, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RoleStaff, true
	}
	for _, role := range []Role{RoleAdmin, RoleManager, RoleStaff, RoleVendor} {
		if strings.EqualFold(raw, string(role)) {
			return role, true
		}
	}
	return "", false
}

// User is the credential record held by the store. RefreshTokenHash and
// RefreshTokenExpiresAt are either both nil or both set.
type User struct {
	ID                    string
	Email                 string
	PasswordHash          string
	FirstName             string
	LastName              string
	Department            *string
	Role                  Role
	SupplierID            *int64
	IsActive              bool
	RefreshTokenHash      *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Session is the result of login, registration and refresh.
type Session struct {
	Succeeded    bool       `json:"succeeded"`
	Token        string     `json:"token,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	UserID       string     `json:"userId,omitempty"`
	Email        string     `json:"email,omitempty"`
	FullName     string     `json:"fullName,omitempty"`
	Role         string     `json:"role,omitempty"`
	Errors       []string   `json:"errors,omitempty"`
}

// UserInfo is the read-only profile view returned by user-info.
type UserInfo struct {
	UserID   string   `json:"userId"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

// LoginAttempt tracks lockout state per email.
type LoginAttempt struct {
	Email          string
	FailedAttempts int
	LockedUntil    *time.Time
}
