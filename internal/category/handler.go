package category

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgconn"

	"vendorhub/internal/httpx"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	httpx.WriteOK(w, http.StatusOK, items, "")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	name, ok := normalizeName(req.Name)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "category name is required and must be at most 100 characters")
		return
	}

	c, err := h.repo.Create(r.Context(), name, strings.TrimSpace(req.Description))
	if err != nil {
		h.writeRepoError(w, err, "failed to create category")
		return
	}
	httpx.WriteOK(w, http.StatusCreated, c, "")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req categoryRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	name, valid := normalizeName(req.Name)
	if !valid {
		httpx.WriteError(w, http.StatusBadRequest, "category name is required and must be at most 100 characters")
		return
	}

	c, err := h.repo.Update(r.Context(), id, name, strings.TrimSpace(req.Description))
	if err != nil {
		h.writeRepoError(w, err, "failed to update category")
		return
	}
	httpx.WriteOK(w, http.StatusOK, c, "")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		// Products keep a hard reference, so deletion of an in-use
		// category surfaces as a constraint violation.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			httpx.WriteError(w, http.StatusConflict, "category is in use by existing products")
			return
		}
		h.writeRepoError(w, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.WriteError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, ErrNameTaken):
		httpx.WriteError(w, http.StatusConflict, ErrNameTaken.Error())
	default:
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, message)
	}
}
