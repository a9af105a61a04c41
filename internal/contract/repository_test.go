package contract

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewRepository(db), mock, db
}

func contractRows(rows ...[]driver.Value) *sqlmock.Rows {
	out := sqlmock.NewRows([]string{
		"id", "supplier_id", "supplier_name", "contract_number",
		"sign_date", "expiry_date", "value", "file_path", "status", "created_at",
	})
	for _, row := range rows {
		out.AddRow(row...)
	}
	return out
}

func TestExpiringQueriesActiveWindow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)FROM contracts c.+WHERE c\.status = 'active'.+CURRENT_DATE \+ \$1 \* INTERVAL '1 day'`).
		WithArgs(30).
		WillReturnRows(contractRows(
			[]driver.Value{int64(1), int64(3), "Acme Industrial", "CTR-2026-001",
				now.AddDate(-1, 0, 0), now.AddDate(0, 0, 12), 25000.0, nil, "active", now},
		))

	contracts, err := repo.Expiring(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "CTR-2026-001", contracts[0].ContractNumber)
	assert.Equal(t, "Acme Industrial", contracts[0].SupplierName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersBySupplier(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	supplierID := int64(3)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contracts c WHERE c\.supplier_id = \$1`).
		WithArgs(supplierID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`(?s)FROM contracts c.+WHERE c\.supplier_id = \$1.+LIMIT \$2 OFFSET \$3`).
		WithArgs(supplierID, 10, 0).
		WillReturnRows(contractRows())

	paged, err := repo.List(context.Background(), &supplierID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, paged.TotalCount)
	assert.Empty(t, paged.Items)
	assert.False(t, paged.HasNextPage)
}

func TestCreateMapsConstraintViolations(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	input := Input{SupplierID: 3, ContractNumber: "CTR-2026-001",
		SignDate: time.Now(), ExpiryDate: time.Now().AddDate(1, 0, 0),
		Value: 25000, Status: StatusActive}

	mock.ExpectQuery(`INSERT INTO contracts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "contracts_contract_number_key"})
	_, err := repo.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrNumberTaken)

	mock.ExpectQuery(`INSERT INTO contracts`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "contracts_supplier_id_fkey"})
	_, err = repo.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnknownSupplier)
}

func TestUpdateMissingContract(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE contracts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), 404, Input{Status: StatusActive})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
