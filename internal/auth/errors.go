package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts. Callers see one message for all three cases.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRefreshToken covers a missing, mismatched or expired
	// refresh token presented to the refresh endpoint.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrEmailTaken = errors.New("email is already taken")
	ErrNotFound   = errors.New("user not found")
)

// ErrLoginLocked signals that the account is temporarily locked after
// repeated failed attempts.
type ErrLoginLocked struct {
	Until time.Time
}

func (e ErrLoginLocked) Error() string {
	return "login temporarily locked"
}

// RegistrationError carries the individual validation reasons a
// registration was rejected for.
type RegistrationError struct {
	Reasons []string
}

func (e RegistrationError) Error() string {
	if len(e.Reasons) == 0 {
		return "registration failed"
	}
	return "registration failed: " + e.Reasons[0]
}
