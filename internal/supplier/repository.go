package supplier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendorhub/internal/httpx"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const supplierSelect = `
	SELECT s.id, s.name, s.tax_code, s.address, s.phone, s.email, s.contact_person,
	       s.logo_url, s.status, s.rank, s.is_blacklisted, s.blacklist_reason,
	       s.created_at, s.updated_at,
	       (SELECT COUNT(*) FROM contracts c WHERE c.supplier_id = s.id) AS contract_count,
	       (SELECT COUNT(*) FROM supplier_products sp WHERE sp.supplier_id = s.id) AS product_count,
	       (SELECT AVG(vr.overall_rating) FROM vendor_ratings vr WHERE vr.supplier_id = s.id) AS average_rating,
	       (SELECT COALESCE(SUM(po.total_amount), 0) FROM purchase_orders po WHERE po.supplier_id = s.id) AS total_purchase_amount
	FROM suppliers s`

func (r *Repository) List(ctx context.Context, filter ListFilter) (httpx.Paged[Supplier], error) {
	where, args := buildFilter(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM suppliers s` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return httpx.Paged[Supplier]{}, fmt.Errorf("count suppliers: %w", err)
	}

	query := supplierSelect + where + fmt.Sprintf(`
		ORDER BY s.created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return httpx.Paged[Supplier]{}, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	items := make([]Supplier, 0)
	for rows.Next() {
		item, err := scanSupplier(rows)
		if err != nil {
			return httpx.Paged[Supplier]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return httpx.Paged[Supplier]{}, fmt.Errorf("iterate suppliers: %w", err)
	}

	return httpx.NewPaged(items, total, filter.Page, filter.PageSize), nil
}

func buildFilter(filter ListFilter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(LOWER(s.name) LIKE $%d
			OR LOWER(COALESCE(s.email, '')) LIKE $%d
			OR LOWER(COALESCE(s.tax_code, '')) LIKE $%d
			OR LOWER(COALESCE(s.contact_person, '')) LIKE $%d)`, n, n, n, n))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if filter.Rank != nil {
		args = append(args, *filter.Rank)
		clauses = append(clauses, fmt.Sprintf("s.rank = $%d", len(args)))
	}
	if filter.Blacklisted != nil {
		args = append(args, *filter.Blacklisted)
		clauses = append(clauses, fmt.Sprintf("s.is_blacklisted = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row rowScanner) (Supplier, error) {
	var s Supplier
	var taxCode, address, phone, email, contactPerson, logoURL, blacklistReason sql.NullString
	var updatedAt sql.NullTime
	var averageRating sql.NullFloat64

	err := row.Scan(&s.ID, &s.Name, &taxCode, &address, &phone, &email, &contactPerson,
		&logoURL, &s.Status, &s.Rank, &s.IsBlacklisted, &blacklistReason,
		&s.CreatedAt, &updatedAt,
		&s.ContractCount, &s.ProductCount, &averageRating, &s.TotalPurchaseAmount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Supplier{}, err
		}
		return Supplier{}, fmt.Errorf("scan supplier: %w", err)
	}

	s.TaxCode = nullableString(taxCode)
	s.Address = nullableString(address)
	s.Phone = nullableString(phone)
	s.Email = nullableString(email)
	s.ContactPerson = nullableString(contactPerson)
	s.LogoURL = nullableString(logoURL)
	s.BlacklistReason = nullableString(blacklistReason)
	if updatedAt.Valid {
		value := updatedAt.Time.UTC()
		s.UpdatedAt = &value
	}
	if averageRating.Valid {
		s.AverageRating = &averageRating.Float64
	}

	return s, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Supplier, error) {
	row := r.db.QueryRowContext(ctx, supplierSelect+` WHERE s.id = $1`, id)
	return scanSupplier(row)
}

func (r *Repository) Create(ctx context.Context, input Input) (Supplier, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, tax_code, address, phone, email, contact_person, status, rank, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, input.Name, input.TaxCode, input.Address, input.Phone, input.Email, input.ContactPerson,
		input.Status, input.Rank, time.Now().UTC()).Scan(&id)
	if err != nil {
		return Supplier{}, fmt.Errorf("insert supplier: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, input Input) (Supplier, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, tax_code = $3, address = $4, phone = $5, email = $6,
		    contact_person = $7, status = $8, rank = $9, updated_at = $10
		WHERE id = $1
	`, id, input.Name, input.TaxCode, input.Address, input.Phone, input.Email,
		input.ContactPerson, input.Status, input.Rank, time.Now().UTC())
	if err != nil {
		return Supplier{}, fmt.Errorf("update supplier: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Supplier{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) Blacklist(ctx context.Context, id int64, reason string) (Supplier, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE suppliers
		SET is_blacklisted = TRUE, blacklist_reason = $2, updated_at = $3
		WHERE id = $1
	`, id, reason, time.Now().UTC())
	if err != nil {
		return Supplier{}, fmt.Errorf("blacklist supplier: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Supplier{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) Unblacklist(ctx context.Context, id int64) (Supplier, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE suppliers
		SET is_blacklisted = FALSE, blacklist_reason = NULL, updated_at = $2
		WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return Supplier{}, fmt.Errorf("unblacklist supplier: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Supplier{}, err
	}

	return r.GetByID(ctx, id)
}

// LinkProducts associates products with the supplier, ignoring links that
// already exist.
func (r *Repository) LinkProducts(ctx context.Context, id int64, productIDs []int64) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check supplier: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link products tx: %w", err)
	}
	defer tx.Rollback()

	for _, productID := range productIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO supplier_products (supplier_id, product_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, productID)
		if err != nil {
			return fmt.Errorf("link product %d: %w", productID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit link products tx: %w", err)
	}

	return nil
}

func (r *Repository) SetLogoURL(ctx context.Context, id int64, logoURL string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE suppliers
		SET logo_url = $2, updated_at = $3
		WHERE id = $1
	`, id, logoURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set supplier logo: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) PriceHistory(ctx context.Context, supplierID int64, productID *int64) ([]PriceEntry, error) {
	query := `
		SELECT pl.id, pl.supplier_id, pl.product_id, p.name, pl.price, pl.created_at
		FROM price_lists pl
		JOIN products p ON p.id = pl.product_id
		WHERE pl.supplier_id = $1`
	args := []any{supplierID}
	if productID != nil {
		query += ` AND pl.product_id = $2`
		args = append(args, *productID)
	}
	query += ` ORDER BY pl.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	entries := make([]PriceEntry, 0)
	for rows.Next() {
		var entry PriceEntry
		if err := rows.Scan(&entry.ID, &entry.SupplierID, &entry.ProductID, &entry.ProductName, &entry.Price, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan price entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history: %w", err)
	}

	return entries, nil
}

func (r *Repository) AddPrice(ctx context.Context, supplierID, productID int64, price float64) (PriceEntry, error) {
	var entry PriceEntry
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO price_lists (supplier_id, product_id, price, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, supplier_id, product_id,
		          (SELECT name FROM products WHERE id = $2), price, created_at
	`, supplierID, productID, price, time.Now().UTC()).
		Scan(&entry.ID, &entry.SupplierID, &entry.ProductID, &entry.ProductName, &entry.Price, &entry.CreatedAt)
	if err != nil {
		return PriceEntry{}, fmt.Errorf("insert price entry: %w", err)
	}

	return entry, nil
}

// PriceComparisonAcross returns the most recent quote per supplier, for one
// product or for all products.
func (r *Repository) PriceComparisonAcross(ctx context.Context, productID *int64) ([]PriceComparison, error) {
	query := `
		SELECT DISTINCT ON (pl.product_id, pl.supplier_id)
		       pl.product_id, p.name, pl.supplier_id, s.name, pl.price, pl.created_at
		FROM price_lists pl
		JOIN products p ON p.id = pl.product_id
		JOIN suppliers s ON s.id = pl.supplier_id`
	args := make([]any, 0, 1)
	if productID != nil {
		query += ` WHERE pl.product_id = $1`
		args = append(args, *productID)
	}
	query += ` ORDER BY pl.product_id, pl.supplier_id, pl.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price comparison: %w", err)
	}
	defer rows.Close()

	comparisons := make([]PriceComparison, 0)
	for rows.Next() {
		var c PriceComparison
		if err := rows.Scan(&c.ProductID, &c.ProductName, &c.SupplierID, &c.SupplierName, &c.Price, &c.QuotedAt); err != nil {
			return nil, fmt.Errorf("scan price comparison: %w", err)
		}
		comparisons = append(comparisons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price comparison: %w", err)
	}

	return comparisons, nil
}

// ActiveLookup lists active, non-blacklisted suppliers for dropdowns.
func (r *Repository) ActiveLookup(ctx context.Context) ([]Lookup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name
		FROM suppliers
		WHERE status <> 'inactive' AND NOT is_blacklisted
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query supplier lookup: %w", err)
	}
	defer rows.Close()

	lookups := make([]Lookup, 0)
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("scan supplier lookup: %w", err)
		}
		lookups = append(lookups, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supplier lookup: %w", err)
	}

	return lookups, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
