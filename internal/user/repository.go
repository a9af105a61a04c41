package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"vendorhub/internal/auth"
	"vendorhub/internal/httpx"
)

var (
	ErrEmailTaken      = errors.New("email is already registered")
	ErrUnknownSupplier = errors.New("supplier does not exist")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const accountSelect = `
	SELECT u.id, u.email, u.first_name, u.last_name, u.department, u.role,
	       u.supplier_id, s.name AS supplier_name, u.is_active, u.created_at, u.updated_at
	FROM users u
	LEFT JOIN suppliers s ON s.id = u.supplier_id`

func (r *Repository) List(ctx context.Context, filter ListFilter) (httpx.Paged[Account], error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(LOWER(u.email) LIKE $%d
			OR LOWER(u.first_name || ' ' || u.last_name) LIKE $%d)`, n, n))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("u.role = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM users u` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return httpx.Paged[Account]{}, fmt.Errorf("count users: %w", err)
	}

	query := accountSelect + where + fmt.Sprintf(`
		ORDER BY u.created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return httpx.Paged[Account]{}, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	items := make([]Account, 0)
	for rows.Next() {
		item, err := scanAccount(rows)
		if err != nil {
			return httpx.Paged[Account]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return httpx.Paged[Account]{}, fmt.Errorf("iterate users: %w", err)
	}

	return httpx.NewPaged(items, total, filter.Page, filter.PageSize), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRowContext(ctx, accountSelect+` WHERE u.id = $1`, id)
	return scanAccount(row)
}

func (r *Repository) Create(ctx context.Context, id string, input Input, passwordHash string) (Account, error) {
	firstName, lastName := auth.SplitFullName(input.FullName)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name,
		                   department, role, supplier_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, input.Email, passwordHash, firstName, lastName,
		input.Department, input.Role, input.SupplierID, input.IsActive)
	if err != nil {
		return Account{}, classifyError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id string, input Input) (Account, error) {
	firstName, lastName := auth.SplitFullName(input.FullName)
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, department = $5,
		    role = $6, supplier_id = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1`,
		id, input.Email, firstName, lastName, input.Department,
		input.Role, input.SupplierID, input.IsActive)
	if err != nil {
		return Account{}, classifyError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Account{}, fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return Account{}, sql.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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
			return ErrEmailTaken
		case "23503":
			return ErrUnknownSupplier
		}
	}
	return fmt.Errorf("store user: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Department, &a.Role,
		&a.SupplierID, &a.SupplierName, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, sql.ErrNoRows
		}
		return Account{}, fmt.Errorf("scan user: %w", err)
	}
	return a, nil
}
