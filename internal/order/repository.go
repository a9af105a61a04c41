package order

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vendorhub/internal/httpx"
)

var ErrUnknownSupplier = errors.New("supplier does not exist")
var ErrUnknownProduct = errors.New("product does not exist")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const orderSelect = `
	SELECT po.id, po.po_number, po.supplier_id, s.name AS supplier_name,
	       po.status, po.total_amount, po.created_by, po.created_at
	FROM purchase_orders po
	JOIN suppliers s ON s.id = po.supplier_id`

func (r *Repository) List(ctx context.Context, filter ListFilter) (httpx.Paged[Order], error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		clauses = append(clauses, fmt.Sprintf("po.supplier_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("po.status = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM purchase_orders po` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return httpx.Paged[Order]{}, fmt.Errorf("count purchase orders: %w", err)
	}

	query := orderSelect + where + fmt.Sprintf(`
		ORDER BY po.created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return httpx.Paged[Order]{}, fmt.Errorf("query purchase orders: %w", err)
	}
	defer rows.Close()

	items := make([]Order, 0)
	for rows.Next() {
		item, err := scanOrder(rows)
		if err != nil {
			return httpx.Paged[Order]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return httpx.Paged[Order]{}, fmt.Errorf("iterate purchase orders: %w", err)
	}

	return httpx.NewPaged(items, total, filter.Page, filter.PageSize), nil
}

// GetByID loads an order with its line items.
func (r *Repository) GetByID(ctx context.Context, id int64) (Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+` WHERE po.id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.product_id, p.name, i.quantity, i.unit_price, i.total_price
		FROM purchase_order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id`, id)
	if err != nil {
		return Order{}, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	o.Items = make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return Order{}, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("iterate order items: %w", err)
	}
	return o, nil
}

// Create stores the order and its items in one transaction. Item totals and
// the order total are computed server-side, never trusted from the caller.
func (r *Repository) Create(ctx context.Context, input Input) (Order, error) {
	poNumber, err := newPONumber()
	if err != nil {
		return Order{}, err
	}

	var totalAmount float64
	for _, item := range input.Items {
		totalAmount += float64(item.Quantity) * item.UnitPrice
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchase_orders (po_number, supplier_id, status, total_amount, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		poNumber, input.SupplierID, input.Status, totalAmount, input.CreatedBy).Scan(&id)
	if err != nil {
		return Order{}, classifyError(err)
	}

	for _, item := range input.Items {
		totalPrice := float64(item.Quantity) * item.UnitPrice
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_order_items (order_id, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5)`,
			id, item.ProductID, item.Quantity, item.UnitPrice, totalPrice); err != nil {
			return Order{}, classifyError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("commit order: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) (Order, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE purchase_orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		return Order{}, sql.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		if strings.Contains(pgErr.ConstraintName, "product") {
			return ErrUnknownProduct
		}
		return ErrUnknownSupplier
	}
	return fmt.Errorf("store purchase order: %w", err)
}

// newPONumber builds an order number like PO-20260829-4F2A1C. The random
// suffix keeps concurrent creators from colliding on the unique index.
func newPONumber() (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate po number: %w", err)
	}
	return fmt.Sprintf("PO-%s-%s",
		time.Now().UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(suffix))), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PONumber, &o.SupplierID, &o.SupplierName,
		&o.Status, &o.TotalAmount, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, sql.ErrNoRows
		}
		return Order{}, fmt.Errorf("scan purchase order: %w", err)
	}
	return o, nil
}
