package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type registerRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

type refreshRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !httpx.DecodeJSON(w, r, &body) {
		return
	}

	session, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeAuthFailure(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !httpx.DecodeJSON(w, r, &body) {
		return
	}

	session, err := h.service.Register(r.Context(), body.FullName, body.Email, body.Password, body.ConfirmPassword, body.Role)
	if err != nil {
		var regErr RegistrationError
		if errors.As(err, &regErr) {
			httpx.WriteJSON(w, http.StatusBadRequest, Session{Errors: regErr.Reasons})
			return
		}

		sentry.CaptureException(err)
		httpx.WriteJSON(w, http.StatusInternalServerError, Session{Errors: []string{"registration failed"}})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !httpx.DecodeJSON(w, r, &body) {
		return
	}

	session, err := h.service.Refresh(r.Context(), body.Token, body.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			httpx.WriteJSON(w, http.StatusUnauthorized, Session{Errors: []string{ErrInvalidToken.Error()}})
		case errors.Is(err, ErrInvalidRefreshToken):
			httpx.WriteJSON(w, http.StatusUnauthorized, Session{Errors: []string{ErrInvalidRefreshToken.Error()}})
		default:
			sentry.CaptureException(err)
			httpx.WriteJSON(w, http.StatusInternalServerError, Session{Errors: []string{"failed to refresh token"}})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, session)
}

// Logout revokes the caller's refresh token server-side. Clients treat this
// as best-effort and clear local state regardless.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.service.Logout(r.Context(), principal.UserID); err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	info, err := h.service.UserInfo(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load user info")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) writeAuthFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidCredentials) {
		httpx.WriteJSON(w, http.StatusBadRequest, Session{Errors: []string{ErrInvalidCredentials.Error()}})
		return
	}

	var lockedErr ErrLoginLocked
	if errors.As(err, &lockedErr) {
		retryAfter := int(time.Until(lockedErr.Until).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		httpx.WriteJSON(w, http.StatusTooManyRequests, Session{Errors: []string{lockedErr.Error()}})
		return
	}

	sentry.CaptureException(err)
	httpx.WriteJSON(w, http.StatusInternalServerError, Session{Errors: []string{"failed to login"}})
}
