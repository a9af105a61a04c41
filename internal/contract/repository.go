package contract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"vendorhub/internal/httpx"
)

var ErrNumberTaken = errors.New("contract number already exists")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const contractSelect = `
	SELECT c.id, c.supplier_id, s.name AS supplier_name, c.contract_number,
	       c.sign_date, c.expiry_date, c.value, c.file_path, c.status, c.created_at
	FROM contracts c
	JOIN suppliers s ON s.id = c.supplier_id`

func (r *Repository) List(ctx context.Context, supplierID *int64, page, pageSize int) (httpx.Paged[Contract], error) {
	where := ""
	args := make([]any, 0, 3)
	if supplierID != nil {
		args = append(args, *supplierID)
		where = " WHERE c.supplier_id = $1"
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM contracts c` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return httpx.Paged[Contract]{}, fmt.Errorf("count contracts: %w", err)
	}

	query := contractSelect + where + fmt.Sprintf(`
		ORDER BY c.expiry_date
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	items, err := r.queryContracts(ctx, query, args...)
	if err != nil {
		return httpx.Paged[Contract]{}, err
	}
	return httpx.NewPaged(items, total, page, pageSize), nil
}

// Expiring returns active contracts whose expiry date falls inside the
// next `days` days.
func (r *Repository) Expiring(ctx context.Context, days int) ([]Contract, error) {
	return r.queryContracts(ctx, contractSelect+`
		WHERE c.status = 'active'
		  AND c.expiry_date >= CURRENT_DATE
		  AND c.expiry_date <= CURRENT_DATE + $1 * INTERVAL '1 day'
		ORDER BY c.expiry_date`, days)
}

func (r *Repository) queryContracts(ctx context.Context, query string, args ...any) ([]Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	items := make([]Contract, 0)
	for rows.Next() {
		item, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return items, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Contract, error) {
	row := r.db.QueryRowContext(ctx, contractSelect+` WHERE c.id = $1`, id)
	return scanContract(row)
}

func (r *Repository) Create(ctx context.Context, input Input) (Contract, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO contracts (supplier_id, contract_number, sign_date, expiry_date,
		                       value, file_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		input.SupplierID, input.ContractNumber, input.SignDate, input.ExpiryDate,
		input.Value, input.FilePath, input.Status).Scan(&id)
	if err != nil {
		return Contract{}, classifyError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id int64, input Input) (Contract, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET supplier_id = $2, contract_number = $3, sign_date = $4, expiry_date = $5,
		    value = $6, file_path = $7, status = $8
		WHERE id = $1`,
		id, input.SupplierID, input.ContractNumber, input.SignDate, input.ExpiryDate,
		input.Value, input.FilePath, input.Status)
	if err != nil {
		return Contract{}, classifyError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Contract{}, fmt.Errorf("update contract: %w", err)
	}
	if affected == 0 {
		return Contract{}, sql.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrNumberTaken
		case "23503":
			return ErrUnknownSupplier
		}
	}
	return fmt.Errorf("store contract: %w", err)
}

var ErrUnknownSupplier = errors.New("supplier does not exist")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.SupplierID, &c.SupplierName, &c.ContractNumber,
		&c.SignDate, &c.ExpiryDate, &c.Value, &c.FilePath, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contract{}, sql.ErrNoRows
		}
		return Contract{}, fmt.Errorf("scan contract: %w", err)
	}
	return c, nil
}
