package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"vendorhub/internal/httpx"
)

var ErrSKUTaken = errors.New("product sku already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const productSelect = `
	SELECT p.id, p.sku, p.name, p.category_id, c.name AS category_name,
	       p.unit, p.description, p.image_url,
	       p.min_stock, p.max_stock, p.current_stock, p.is_active,
	       p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id`

func (r *Repository) List(ctx context.Context, filter ListFilter) (httpx.Paged[Product], error) {
	where, args := buildFilter(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return httpx.Paged[Product]{}, fmt.Errorf("count products: %w", err)
	}

	query := productSelect + where + fmt.Sprintf(`
		ORDER BY p.name
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return httpx.Paged[Product]{}, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		item, err := scanProduct(rows)
		if err != nil {
			return httpx.Paged[Product]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return httpx.Paged[Product]{}, fmt.Errorf("iterate products: %w", err)
	}

	return httpx.NewPaged(items, total, filter.Page, filter.PageSize), nil
}

func buildFilter(filter ListFilter) (string, []any) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(LOWER(p.name) LIKE $%d OR LOWER(p.sku) LIKE $%d)`, n, n))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("p.category_id = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Product, error) {
	row := r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id)
	return scanProduct(row)
}

func (r *Repository) Create(ctx context.Context, input Input) (Product, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (sku, name, category_id, unit, description,
		                      min_stock, max_stock, current_stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		input.SKU, input.Name, input.CategoryID, input.Unit, input.Description,
		input.MinStock, input.MaxStock, input.CurrentStock, input.IsActive).Scan(&id)
	if err != nil {
		return Product{}, classifyInsertError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, input Input) (Product, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET sku = $2, name = $3, category_id = $4, unit = $5, description = $6,
		    min_stock = $7, max_stock = $8, current_stock = $9, is_active = $10,
		    updated_at = NOW()
		WHERE id = $1`,
		id, input.SKU, input.Name, input.CategoryID, input.Unit, input.Description,
		input.MinStock, input.MaxStock, input.CurrentStock, input.IsActive)
	if err != nil {
		return Product{}, classifyInsertError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	if affected == 0 {
		return Product{}, sql.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) SetImageURL(ctx context.Context, id int64, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set product image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set product image: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsSKU reports whether a product with the given SKU already exists,
// used by the spreadsheet import to skip duplicates instead of aborting.
func (r *Repository) ExistsSKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product sku: %w", err)
	}
	return exists, nil
}

func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrSKUTaken
		case "23503":
			return ErrUnknownCategory
		}
	}
	return fmt.Errorf("store product: %w", err)
}

var ErrUnknownCategory = errors.New("category does not exist")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CategoryName,
		&p.Unit, &p.Description, &p.ImageURL,
		&p.MinStock, &p.MaxStock, &p.CurrentStock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, sql.ErrNoRows
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}
