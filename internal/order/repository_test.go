package order

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewRepository(db), mock, db
}

func orderRows(id int64, poNumber string, total float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "po_number", "supplier_id", "supplier_name",
		"status", "total_amount", "created_by", "created_at",
	}).AddRow(id, poNumber, int64(3), "Acme Industrial", "draft", total, "user-1", time.Now().UTC())
}

func TestCreateComputesTotalsServerSide(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	createdBy := "user-1"
	input := Input{
		SupplierID: 3,
		Status:     StatusDraft,
		CreatedBy:  &createdBy,
		Items: []ItemInput{
			{ProductID: 10, Quantity: 4, UnitPrice: 2.5},
			{ProductID: 11, Quantity: 1, UnitPrice: 100},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO purchase_orders`).
		WithArgs(sqlmock.AnyArg(), int64(3), StatusDraft, 110.0, &createdBy).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO purchase_order_items`).
		WithArgs(int64(42), int64(10), 4, 2.5, 10.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO purchase_order_items`).
		WithArgs(int64(42), int64(11), 1, 100.0, 100.0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`(?s)SELECT po\.id, po\.po_number.+WHERE po\.id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(orderRows(42, "PO-20260829-4F2A1C", 110))
	mock.ExpectQuery(`SELECT i\.id, i\.product_id`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "name", "quantity", "unit_price", "total_price"}).
			AddRow(int64(1), int64(10), "Washer M8", 4, 2.5, 10.0).
			AddRow(int64(2), int64(11), "Drill Press", 1, 100.0, 100.0))

	order, err := repo.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if order.TotalAmount != 110 {
		t.Fatalf("TotalAmount = %v, want 110", order.TotalAmount)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateMapsForeignKeyViolations(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	input := Input{SupplierID: 99, Status: StatusDraft,
		Items: []ItemInput{{ProductID: 10, Quantity: 1, UnitPrice: 1}}}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO purchase_orders`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "purchase_orders_supplier_id_fkey"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), input)
	if !errors.Is(err, ErrUnknownSupplier) {
		t.Fatalf("expected ErrUnknownSupplier, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO purchase_orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO purchase_order_items`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "purchase_order_items_product_id_fkey"})
	mock.ExpectRollback()

	_, err = repo.Create(context.Background(), input)
	if !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE purchase_orders SET status = \$2`).
		WithArgs(int64(404), StatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateStatus(context.Background(), 404, StatusApproved)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListFiltersBySupplierAndStatus(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	supplierID := int64(3)
	status := StatusSent
	filter := ListFilter{SupplierID: &supplierID, Status: &status, Page: 1, PageSize: 10}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM purchase_orders po WHERE po\.supplier_id = \$1 AND po\.status = \$2`).
		WithArgs(supplierID, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`(?s)WHERE po\.supplier_id = \$1 AND po\.status = \$2.+LIMIT \$3 OFFSET \$4`).
		WithArgs(supplierID, status, 10, 0).
		WillReturnRows(orderRows(42, "PO-20260829-4F2A1C", 110))

	paged, err := repo.List(context.Background(), filter)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if paged.TotalCount != 1 || len(paged.Items) != 1 {
		t.Fatalf("unexpected page: total=%d items=%d", paged.TotalCount, len(paged.Items))
	}
	if paged.Items[0].SupplierName != "Acme Industrial" {
		t.Fatalf("supplier name = %q", paged.Items[0].SupplierName)
	}
}

func TestPONumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^PO-\d{8}-[0-9A-F]{6}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		number, err := newPONumber()
		if err != nil {
			t.Fatalf("newPONumber error: %v", err)
		}
		if !pattern.MatchString(number) {
			t.Fatalf("po number %q does not match %v", number, pattern)
		}
		seen[number] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatal("po numbers never vary")
	}
}
