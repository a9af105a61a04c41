package product

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/xuri/excelize/v2"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewRepository(db), mock, db
}

func workbook(t *testing.T, rows [][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set sheet row: %v", err)
		}
	}
	return f
}

func productRows(id int64, sku, name string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "sku", "name", "category_id", "category_name",
		"unit", "description", "image_url",
		"min_stock", "max_stock", "current_stock", "is_active",
		"created_at", "updated_at",
	}).AddRow(id, sku, name, int64(1), "Fasteners", "pcs", nil, nil, 5, 50, 0, true, now, now)
}

func TestImportFromExcel(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := workbook(t, [][]any{
		{"SKU", "Name", "Category ID", "Unit", "Min Stock", "Max Stock"},
		{"BOLT-M8", "Hex Bolt M8", 1, "pcs", 5, 50},
		{"BOLT-M8-DUP", "Hex Bolt M8 duplicate", 1, "pcs", 0, 0},
		{"NUT-M8", "Hex Nut M8", "not-a-category", "pcs", 0, 0},
		{"", "", 1, "", 0, 0},
	})

	// Row 2 is new and gets inserted.
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM products WHERE sku = \$1\)`).
		WithArgs("BOLT-M8").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`(?s)INSERT INTO products.+RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`(?s)SELECT p\.id, p\.sku.+WHERE p\.id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(productRows(7, "BOLT-M8", "Hex Bolt M8"))

	// Row 3 already exists and is skipped without an insert.
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM products WHERE sku = \$1\)`).
		WithArgs("BOLT-M8-DUP").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	// Rows 4 and 5 are malformed and never reach the store.

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	result, err := repo.ImportFromExcel(context.Background(), buf)
	if err != nil {
		t.Fatalf("ImportFromExcel error: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}
	if result.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", result.Skipped)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Errors = %v, want exactly the two malformed rows", result.Errors)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestImportFromExcelRejectsGarbageContent(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	if _, err := repo.ImportFromExcel(context.Background(), strings.NewReader("not a workbook")); err == nil {
		t.Fatal("expected an error for a non-workbook body")
	}
}
