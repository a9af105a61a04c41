// Package order manages purchase orders raised against suppliers.
package order

import "time"

type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusSent              Status = "sent"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected,
		StatusSent, StatusPartiallyReceived, StatusReceived, StatusCompleted,
		StatusCancelled:
		return true
	}
	return false
}

type Item struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

type Order struct {
	ID           int64     `json:"id"`
	PONumber     string    `json:"poNumber"`
	SupplierID   int64     `json:"supplierId"`
	SupplierName string    `json:"supplierName"`
	Status       Status    `json:"status"`
	TotalAmount  float64   `json:"totalAmount"`
	CreatedBy    *string   `json:"createdBy,omitempty"`
	Items        []Item    `json:"items,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ItemInput struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type Input struct {
	SupplierID int64
	Status     Status
	CreatedBy  *string
	Items      []ItemInput
}

type ListFilter struct {
	SupplierID *int64
	Status     *Status
	Page       int
	PageSize   int
}
