// Package product manages the product catalogue referenced by suppliers,
// price lists and purchase orders.
package product

import "time"

type Product struct {
	ID           int64     `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Unit         *string   `json:"unit,omitempty"`
	Description  *string   `json:"description,omitempty"`
	ImageURL     *string   `json:"imageUrl,omitempty"`
	MinStock     int       `json:"minStock"`
	MaxStock     int       `json:"maxStock"`
	CurrentStock int       `json:"currentStock"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Input struct {
	SKU          string
	Name         string
	CategoryID   int64
	Unit         *string
	Description  *string
	MinStock     int
	MaxStock     int
	CurrentStock int
	IsActive     bool
}

type ListFilter struct {
	Search     string
	CategoryID *int64
	Page       int
	PageSize   int
}
