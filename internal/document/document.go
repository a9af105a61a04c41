// Package document stores supplier documents on the file host and keeps
// their metadata in the database.
package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Document struct {
	ID          int64     `json:"id"`
	SupplierID  int64     `json:"supplierId"`
	FileName    string    `json:"fileName"`
	URL         string    `json:"url"`
	ContentType *string   `json:"contentType,omitempty"`
	FileSize    int64     `json:"fileSize"`
	PublicID    *string   `json:"-"`
	UploadedBy  *string   `json:"uploadedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const documentColumns = `id, supplier_id, file_name, url, content_type, file_size, public_id, uploaded_by, created_at`

func (r *Repository) ListBySupplier(ctx context.Context, supplierID int64) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE supplier_id = $1
		ORDER BY created_at DESC`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.SupplierID, &d.FileName, &d.URL, &d.ContentType,
			&d.FileSize, &d.PublicID, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Document, error) {
	var d Document
	err := r.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1`, id).
		Scan(&d.ID, &d.SupplierID, &d.FileName, &d.URL, &d.ContentType,
			&d.FileSize, &d.PublicID, &d.UploadedBy, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, sql.ErrNoRows
		}
		return Document{}, fmt.Errorf("load document: %w", err)
	}
	return d, nil
}

func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO documents (supplier_id, file_name, url, content_type, file_size, public_id, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		d.SupplierID, d.FileName, d.URL, d.ContentType, d.FileSize, d.PublicID, d.UploadedBy).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SupplierExists guards uploads against dangling supplier references before
// any bytes leave for the file host.
func (r *Repository) SupplierExists(ctx context.Context, supplierID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, supplierID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check supplier: %w", err)
	}
	return exists, nil
}
