package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrUnknownCriterion = errors.New("unknown rating criterion")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Criteria(ctx context.Context) ([]Criterion, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, weight FROM rating_criteria ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query criteria: %w", err)
	}
	defer rows.Close()

	items := make([]Criterion, 0)
	for rows.Next() {
		var c Criterion
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight); err != nil {
			return nil, fmt.Errorf("scan criterion: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate criteria: %w", err)
	}
	return items, nil
}

// Rate stores a rating with its per-criterion scores. The overall value is
// the weight-adjusted sum over the seeded criteria; unknown criterion ids
// reject the whole rating.
func (r *Repository) Rate(ctx context.Context, input Input) (Rating, error) {
	criteria, err := r.Criteria(ctx)
	if err != nil {
		return Rating{}, err
	}
	weights := make(map[int64]float64, len(criteria))
	names := make(map[int64]string, len(criteria))
	for _, c := range criteria {
		weights[c.ID] = c.Weight
		names[c.ID] = c.Name
	}

	var overall float64
	for i, s := range input.Scores {
		weight, ok := weights[s.CriteriaID]
		if !ok {
			return Rating{}, ErrUnknownCriterion
		}
		overall += weight * s.Score
		input.Scores[i].Name = names[s.CriteriaID]
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Rating{}, fmt.Errorf("begin rating tx: %w", err)
	}
	defer tx.Rollback()

	rating := Rating{
		SupplierID:    input.SupplierID,
		RatedBy:       input.RatedBy,
		OverallRating: overall,
		Comment:       input.Comment,
		Scores:        input.Scores,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO vendor_ratings (supplier_id, rated_by, overall_rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		input.SupplierID, input.RatedBy, overall, input.Comment).
		Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		return Rating{}, fmt.Errorf("insert rating: %w", err)
	}

	for _, s := range input.Scores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vendor_rating_scores (rating_id, criteria_id, score)
			VALUES ($1, $2, $3)`, rating.ID, s.CriteriaID, s.Score); err != nil {
			return Rating{}, fmt.Errorf("insert rating score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Rating{}, fmt.Errorf("commit rating: %w", err)
	}
	return rating, nil
}

func (r *Repository) ListBySupplier(ctx context.Context, supplierID int64) ([]Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, supplier_id, rated_by, overall_rating, comment, created_at
		FROM vendor_ratings
		WHERE supplier_id = $1
		ORDER BY created_at DESC`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	items := make([]Rating, 0)
	index := make(map[int64]int)
	ids := make([]int64, 0)
	for rows.Next() {
		var item Rating
		if err := rows.Scan(&item.ID, &item.SupplierID, &item.RatedBy,
			&item.OverallRating, &item.Comment, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		item.Scores = make([]Score, 0, 4)
		index[item.ID] = len(items)
		ids = append(ids, item.ID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	scoreRows, err := r.db.QueryContext(ctx, `
		SELECT vrs.rating_id, vrs.criteria_id, rc.name, vrs.score
		FROM vendor_rating_scores vrs
		JOIN rating_criteria rc ON rc.id = vrs.criteria_id
		WHERE vrs.rating_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query rating scores: %w", err)
	}
	defer scoreRows.Close()

	for scoreRows.Next() {
		var ratingID int64
		var s Score
		if err := scoreRows.Scan(&ratingID, &s.CriteriaID, &s.Name, &s.Score); err != nil {
			return nil, fmt.Errorf("scan rating score: %w", err)
		}
		if i, ok := index[ratingID]; ok {
			items[i].Scores = append(items[i].Scores, s)
		}
	}
	if err := scoreRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating scores: %w", err)
	}
	return items, nil
}
