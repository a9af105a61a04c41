// Package rating computes criteria-weighted vendor ratings.
package rating

import "time"

type Criterion struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Score struct {
	CriteriaID int64   `json:"criteriaId"`
	Name       string  `json:"name,omitempty"`
	Score      float64 `json:"score"`
}

type Rating struct {
	ID            int64     `json:"id"`
	SupplierID    int64     `json:"supplierId"`
	RatedBy       *string   `json:"ratedBy,omitempty"`
	OverallRating float64   `json:"overallRating"`
	Comment       *string   `json:"comment,omitempty"`
	Scores        []Score   `json:"scores"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Input struct {
	SupplierID int64
	RatedBy    *string
	Comment    *string
	Scores     []Score
}
