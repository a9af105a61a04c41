// Package notification stores per-user notifications and streams them to
// connected clients.
package notification

import "time"

const (
	TypeInfo                  = "info"
	TypeWarning               = "warning"
	TypeContractExpiring      = "contract_expiring"
	TypeDocumentUploaded      = "document_uploaded"
	TypeSupplierStatusChanged = "supplier_status_changed"
	TypeSupplierBlacklisted   = "supplier_blacklisted"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
