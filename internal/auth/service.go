package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultRefreshTTL  = 7 * 24 * time.Hour
	defaultMaxAttempts = 5
	defaultLockWindow  = 15 * time.Minute
	minPasswordLength  = 8
)

// Service orchestrates login, registration, refresh and logout against the
// credential store and the token issuer.
type Service struct {
	repo         *Repository
	issuer       *TokenIssuer
	refreshTTL   time.Duration
	maxAttempts  int
	lockDuration time.Duration
}

func NewService(repo *Repository, issuer *TokenIssuer) *Service {
	return &Service{
		repo:         repo,
		issuer:       issuer,
		refreshTTL:   defaultRefreshTTL,
		maxAttempts:  defaultMaxAttempts,
		lockDuration: defaultLockWindow,
	}
}

func (s *Service) WithSecurityConfig(maxAttempts int, lockDuration, refreshTTL time.Duration) {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if lockDuration > 0 {
		s.lockDuration = lockDuration
	}
	if refreshTTL > 0 {
		s.refreshTTL = refreshTTL
	}
}

// Login validates credentials and starts a session. Unknown email, wrong
// password and deactivated account all fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	attempt, err := s.repo.GetLoginAttempt(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil) {
		return Session{}, ErrLoginLocked{Until: *attempt.LockedUntil}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, s.recordFailure(ctx, email, now)
		}
		return Session{}, err
	}

	if !user.IsActive {
		return Session{}, s.recordFailure(ctx, email, now)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, s.recordFailure(ctx, email, now)
	}

	if err := s.repo.ResetLoginAttempt(ctx, email); err != nil {
		return Session{}, err
	}

	return s.startSession(ctx, user)
}

// Register creates a credential record and starts a session for it. Role
// defaults to Staff when blank.
func (s *Service) Register(ctx context.Context, fullName, email, password, confirmPassword, role string) (Session, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(strings.ToLower(email))

	reasons := make([]string, 0, 4)
	if fullName == "" {
		reasons = append(reasons, "full name is required")
	}
	if _, err := mail.ParseAddress(email); email == "" || err != nil {
		reasons = append(reasons, "email is not valid")
	}
	reasons = append(reasons, PasswordPolicyViolations(password)...)
	if password != confirmPassword {
		reasons = append(reasons, "passwords do not match")
	}

	parsedRole, ok := ParseRole(role)
	if !ok {
		reasons = append(reasons, "role is not recognised")
	}

	if len(reasons) > 0 {
		return Session{}, RegistrationError{Reasons: reasons}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("generate user id: %w", err)
	}

	firstName, lastName := SplitFullName(fullName)
	user := User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         parsedRole,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Session{}, RegistrationError{Reasons: []string{ErrEmailTaken.Error()}}
		}
		return Session{}, err
	}

	return s.startSession(ctx, user)
}

// Refresh rotates the refresh token and mints a new access token. The
// presented access token may be expired but must be well-formed and
// correctly signed; the refresh token is single-use.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Session{}, ErrInvalidRefreshToken
	}

	claims, err := s.issuer.VerifyExpired(accessToken)
	if err != nil {
		return Session{}, ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, err
	}

	newRefresh, err := NewRefreshToken()
	if err != nil {
		return Session{}, err
	}

	// Atomic compare-and-swap: succeeds only while the stored hash still
	// equals the presented token and its expiry is in the future. A replay
	// of a consumed token finds no matching row and fails.
	err = s.repo.RotateRefreshToken(ctx, user.ID,
		HashRefreshToken(refreshToken), HashRefreshToken(newRefresh),
		time.Now().UTC().Add(s.refreshTTL))
	if err != nil {
		return Session{}, err
	}

	access, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return Session{}, err
	}

	return sessionFor(user, access, newRefresh, expiresAt), nil
}

// Logout revokes the stored refresh token server-side. The client clears
// its own persisted tokens regardless of the outcome.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.repo.ClearRefreshToken(ctx, userID)
}

// UserInfo returns the profile view for user-info.
func (s *Service) UserInfo(ctx context.Context, userID string) (UserInfo, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserInfo{}, ErrNotFound
		}
		return UserInfo{}, err
	}

	return UserInfo{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName(),
		Roles:    []string{string(user.Role)},
	}, nil
}

func (s *Service) startSession(ctx context.Context, user User) (Session, error) {
	access, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return Session{}, err
	}

	refresh, err := NewRefreshToken()
	if err != nil {
		return Session{}, err
	}

	err = s.repo.StoreRefreshToken(ctx, user.ID, HashRefreshToken(refresh),
		time.Now().UTC().Add(s.refreshTTL))
	if err != nil {
		return Session{}, err
	}

	return sessionFor(user, access, refresh, expiresAt), nil
}

func (s *Service) recordFailure(ctx context.Context, email string, now time.Time) error {
	lockedUntil, err := s.repo.RegisterFailedAttempt(ctx, email, s.maxAttempts, s.lockDuration, now)
	if err != nil {
		return err
	}
	if lockedUntil != nil {
		return ErrLoginLocked{Until: *lockedUntil}
	}
	return ErrInvalidCredentials
}

func sessionFor(user User, access, refresh string, expiresAt time.Time) Session {
	return Session{
		Succeeded:    true,
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    &expiresAt,
		UserID:       user.ID,
		Email:        user.Email,
		FullName:     user.FullName(),
		Role:         string(user.Role),
	}
}

// SplitFullName takes the first whitespace-delimited token as the first
// name and the remainder as the last name.
func SplitFullName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// PasswordPolicyViolations returns one reason per unmet password rule, or
// nil when the password is acceptable.
func PasswordPolicyViolations(password string) []string {
	var reasons []string
	if len(password) < minPasswordLength {
		reasons = append(reasons, "password must be at least 8 characters")
	}

	var hasDigit, hasLower, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		default:
			hasSymbol = true
		}
	}

	if !hasDigit {
		reasons = append(reasons, "password must contain a digit")
	}
	if !hasLower {
		reasons = append(reasons, "password must contain a lowercase letter")
	}
	if !hasUpper {
		reasons = append(reasons, "password must contain an uppercase letter")
	}
	if !hasSymbol {
		reasons = append(reasons, "password must contain a non-alphanumeric character")
	}

	return reasons
}
