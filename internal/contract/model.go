// Package contract tracks supplier contracts and their expiry.
package contract

import "time"

type Status string

const (
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusTerminated Status = "terminated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusTerminated:
		return true
	}
	return false
}

type Contract struct {
	ID             int64     `json:"id"`
	SupplierID     int64     `json:"supplierId"`
	SupplierName   string    `json:"supplierName"`
	ContractNumber string    `json:"contractNumber"`
	SignDate       time.Time `json:"signDate"`
	ExpiryDate     time.Time `json:"expiryDate"`
	Value          float64   `json:"value"`
	FilePath       *string   `json:"filePath,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Input struct {
	SupplierID     int64
	ContractNumber string
	SignDate       time.Time
	ExpiryDate     time.Time
	Value          float64
	FilePath       *string
	Status         Status
}
