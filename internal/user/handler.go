package user

import (
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vendorhub/internal/auth"
	"vendorhub/internal/httpx"
	"vendorhub/internal/supplier"
)

type Handler struct {
	repo      *Repository
	suppliers *supplier.Repository
}

func NewHandler(repo *Repository, suppliers *supplier.Repository) *Handler {
	return &Handler{repo: repo, suppliers: suppliers}
}

type accountRequest struct {
	Email      string  `json:"email"`
	FullName   string  `json:"fullName"`
	Password   string  `json:"password,omitempty"`
	Department *string `json:"department"`
	Role       string  `json:"role"`
	SupplierID *int64  `json:"supplierId"`
	IsActive   *bool   `json:"isActive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.PageParams(r)
	filter := ListFilter{
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, ok := auth.ParseRole(raw)
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "unknown role")
			return
		}
		filter.Role = &role
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	httpx.WriteOK(w, http.StatusOK, result, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	account, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load user")
		return
	}
	httpx.WriteOK(w, http.StatusOK, account, "")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, req, ok := h.parseInput(w, r)
	if !ok {
		return
	}
	if reasons := auth.PasswordPolicyViolations(req.Password); len(reasons) > 0 {
		httpx.WriteErrors(w, http.StatusBadRequest, "password does not meet the policy", reasons)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to generate user id")
		return
	}

	account, err := h.repo.Create(r.Context(), id.String(), input, string(hash))
	if err != nil {
		h.writeRepoError(w, err, "failed to create user")
		return
	}
	httpx.WriteOK(w, http.StatusCreated, account, "")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	input, _, ok := h.parseInput(w, r)
	if !ok {
		return
	}

	account, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		h.writeRepoError(w, err, "failed to update user")
		return
	}
	httpx.WriteOK(w, http.StatusOK, account, "")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok && principal.UserID == id {
		httpx.WriteError(w, http.StatusConflict, "cannot delete your own account")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, err, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuppliersLookup serves the supplier dropdown on the account form:
// active, non-blacklisted suppliers only.
func (h *Handler) SuppliersLookup(w http.ResponseWriter, r *http.Request) {
	items, err := h.suppliers.ActiveLookup(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list suppliers")
		return
	}
	httpx.WriteOK(w, http.StatusOK, items, "")
}

func (h *Handler) parseInput(w http.ResponseWriter, r *http.Request) (Input, accountRequest, bool) {
	var req accountRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return Input{}, req, false
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		httpx.WriteError(w, http.StatusBadRequest, "fullName is required")
		return Input{}, req, false
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "email is not valid")
		return Input{}, req, false
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "unknown role")
		return Input{}, req, false
	}
	if req.SupplierID != nil && *req.SupplierID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "supplierId must be positive")
		return Input{}, req, false
	}

	input := Input{
		Email:      req.Email,
		FullName:   req.FullName,
		Department: req.Department,
		Role:       role,
		SupplierID: req.SupplierID,
		IsActive:   true,
	}
	if req.IsActive != nil {
		input.IsActive = *req.IsActive
	}
	return input, req, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.WriteError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, ErrUnknownSupplier):
		httpx.WriteError(w, http.StatusBadRequest, ErrUnknownSupplier.Error())
	default:
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, message)
	}
}
