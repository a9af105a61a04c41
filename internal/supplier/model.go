package supplier

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

type Rank string

const (
	RankUnranked Rank = "unranked"
	RankBronze   Rank = "bronze"
	RankSilver   Rank = "silver"
	RankGold     Rank = "gold"
	RankPlatinum Rank = "platinum"
)

func (r Rank) Valid() bool {
	switch r {
	case RankUnranked, RankBronze, RankSilver, RankGold, RankPlatinum:
		return true
	}
	return false
}

type Supplier struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	TaxCode         *string    `json:"taxCode,omitempty"`
	Address         *string    `json:"address,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	Email           *string    `json:"email,omitempty"`
	ContactPerson   *string    `json:"contactPerson,omitempty"`
	LogoURL         *string    `json:"logoUrl,omitempty"`
	Status          Status     `json:"status"`
	Rank            Rank       `json:"rank"`
	IsBlacklisted   bool       `json:"isBlacklisted"`
	BlacklistReason *string    `json:"blacklistReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`

	ContractCount       int64    `json:"contractCount"`
	ProductCount        int64    `json:"productCount"`
	AverageRating       *float64 `json:"averageRating,omitempty"`
	TotalPurchaseAmount float64  `json:"totalPurchaseAmount"`
}

type Input struct {
	Name          string  `json:"name"`
	TaxCode       *string `json:"taxCode"`
	Address       *string `json:"address"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	ContactPerson *string `json:"contactPerson"`
	Status        Status  `json:"status"`
	Rank          Rank    `json:"rank"`
}

// ListFilter narrows the paged supplier listing.
type ListFilter struct {
	Search      string
	Status      *Status
	Rank        *Rank
	Blacklisted *bool
	Page        int
	PageSize    int
}

type PriceEntry struct {
	ID          int64     `json:"id"`
	SupplierID  int64     `json:"supplierId"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PriceComparison is the latest price per supplier for one product.
type PriceComparison struct {
	ProductID    int64     `json:"productId"`
	ProductName  string    `json:"productName"`
	SupplierID   int64     `json:"supplierId"`
	SupplierName string    `json:"supplierName"`
	Price        float64   `json:"price"`
	QuotedAt     time.Time `json:"quotedAt"`
}

type Lookup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
