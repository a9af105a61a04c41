// Package user provides the administrative account management surface.
package user

import (
	"time"

	"vendorhub/internal/auth"
)

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Department   *string   `json:"department,omitempty"`
	Role         auth.Role `json:"role"`
	SupplierID   *int64    `json:"supplierId,omitempty"`
	SupplierName *string   `json:"supplierName,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a Account) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

type Input struct {
	Email      string
	FullName   string
	Department *string
	Role       auth.Role
	SupplierID *int64
	IsActive   bool
}

type ListFilter struct {
	Search   string
	Role     *auth.Role
	Page     int
	PageSize int
}
