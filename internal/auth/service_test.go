package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

func newServiceWithMock(t *testing.T) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	service := NewService(NewRepository(db), testIssuer(time.Hour))
	return service, mock, db
}

func userRow(t *testing.T, password string, active bool, refreshHash any, refreshExpiry any) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name", "department", "role",
		"supplier_id", "is_active", "refresh_token_hash", "refresh_token_expires_at",
		"created_at", "updated_at",
	}).AddRow(
		"user-1", "alice@example.com", string(hash), "Alice", "Nguyen", nil, "Manager",
		nil, active, refreshHash, refreshExpiry, now, now,
	)
}

func expectNoAttemptRow(mock sqlmock.Sqlmock, email string) {
	mock.ExpectQuery(`SELECT failed_attempts, locked_until\s+FROM auth_login_attempts`).
		WithArgs(email).
		WillReturnError(sql.ErrNoRows)
}

func expectFailureRecorded(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT failed_attempts, locked_until\s+FROM auth_login_attempts\s+WHERE email = \$1\s+FOR UPDATE`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO auth_login_attempts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestLoginSuccess(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	expectNoAttemptRow(mock, "alice@example.com")
	mock.ExpectQuery(`(?s)SELECT .+FROM users\s+WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(userRow(t, "Sup3r$ecret", true, nil, nil))
	mock.ExpectExec(`DELETE FROM auth_login_attempts`).
		WithArgs("alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users\s+SET refresh_token_hash = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := service.Login(context.Background(), " Alice@Example.com ", "Sup3r$ecret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if !session.Succeeded {
		t.Fatal("expected succeeded session")
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("expected both tokens in session")
	}
	if session.FullName != "Alice Nguyen" || session.Role != "Manager" {
		t.Fatalf("unexpected session identity: %+v", session)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoginWrongPasswordIsGenericFailure(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	expectNoAttemptRow(mock, "alice@example.com")
	mock.ExpectQuery(`(?s)SELECT .+FROM users\s+WHERE email = \$1`).
		WillReturnRows(userRow(t, "Sup3r$ecret", true, nil, nil))
	expectFailureRecorded(mock)

	_, err := service.Login(context.Background(), "alice@example.com", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailIsGenericFailure(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	expectNoAttemptRow(mock, "ghost@example.com")
	mock.ExpectQuery(`(?s)SELECT .+FROM users\s+WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)
	expectFailureRecorded(mock)

	_, err := service.Login(context.Background(), "ghost@example.com", "whatever1A$")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginDeactivatedAccountIsGenericFailure(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	expectNoAttemptRow(mock, "alice@example.com")
	mock.ExpectQuery(`(?s)SELECT .+FROM users\s+WHERE email = \$1`).
		WillReturnRows(userRow(t, "Sup3r$ecret", false, nil, nil))
	expectFailureRecorded(mock)

	_, err := service.Login(context.Background(), "alice@example.com", "Sup3r$ecret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginLockedAccount(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	until := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectQuery(`SELECT failed_attempts, locked_until\s+FROM auth_login_attempts`).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).AddRow(0, until))

	_, err := service.Login(context.Background(), "alice@example.com", "Sup3r$ecret")
	var locked ErrLoginLocked
	if !errors.As(err, &locked) {
		t.Fatalf("expected ErrLoginLocked, got %v", err)
	}
	if !locked.Until.After(time.Now()) {
		t.Fatalf("expected a future lock expiry, got %v", locked.Until)
	}
}

func TestRegisterDefaultsRoleToStaff(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users\s+SET refresh_token_hash = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := service.Register(context.Background(),
		"Bob Tran", "bob@example.com", "Sup3r$ecret", "Sup3r$ecret", "")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if session.Role != string(RoleStaff) {
		t.Fatalf("role = %q, want Staff", session.Role)
	}
	if session.UserID == "" {
		t.Fatal("expected a generated user id")
	}
}

func TestRegisterCollectsAllValidationReasons(t *testing.T) {
	service, _, db := newServiceWithMock(t)
	defer db.Close()

	_, err := service.Register(context.Background(), "", "not-an-email", "short", "different", "Wizard")
	var regErr RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected RegistrationError, got %v", err)
	}
	if len(regErr.Reasons) < 5 {
		t.Fatalf("expected several reasons, got %v", regErr.Reasons)
	}
}

func TestRegisterDuplicateEmailLeavesNoSession(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(ErrEmailTaken)

	_, err := service.Register(context.Background(),
		"Bob Tran", "bob@example.com", "Sup3r$ecret", "Sup3r$ecret", "Staff")
	var regErr RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected RegistrationError, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	expiredIssuer := testIssuer(-time.Minute)
	access, _, err := expiredIssuer.Issue(User{ID: "user-1", Email: "alice@example.com", Role: RoleManager})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	oldRefresh, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}
	expiry := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery(`(?s)SELECT .+FROM users\s+WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(userRow(t, "irrelevant1A$", true, HashRefreshToken(oldRefresh), expiry))
	mock.ExpectExec(`UPDATE users\s+SET refresh_token_hash = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := service.Refresh(context.Background(), access, oldRefresh)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if session.RefreshToken == oldRefresh {
		t.Fatal("expected a rotated refresh token")
	}
	if session.Token == "" {
		t.Fatal("expected a fresh access token")
	}
}

func TestRefreshReplayFails(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	access, _, err := testIssuer(-time.Minute).Issue(User{ID: "user-1", Email: "alice@example.com", Role: RoleManager})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	consumed, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}

	mock.ExpectQuery(`(?s)SELECT .+FROM users\s+WHERE id = \$1`).
		WillReturnRows(userRow(t, "irrelevant1A$", true, "a-different-hash", time.Now().Add(time.Hour)))
	// The compare-and-swap matches zero rows when the stored hash moved on.
	mock.ExpectExec(`UPDATE users\s+SET refresh_token_hash = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = service.Refresh(context.Background(), access, consumed)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshRejectsGarbageAccessToken(t *testing.T) {
	service, _, db := newServiceWithMock(t)
	defer db.Close()

	_, err := service.Refresh(context.Background(), "not-a-jwt", "some-refresh-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestLogoutClearsStoredToken(t *testing.T) {
	service, mock, db := newServiceWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users\s+SET refresh_token_hash = NULL`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := service.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
