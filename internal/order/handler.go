package order

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/auth"
	"vendorhub/internal/httpx"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type createRequest struct {
	SupplierID int64       `json:"supplierId"`
	Status     string      `json:"status"`
	Items      []ItemInput `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.PageParams(r)
	filter := ListFilter{
		SupplierID: httpx.QueryInt64(r, "supplierId"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown order status")
			return
		}
		filter.Status = &status
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list purchase orders")
		return
	}
	httpx.WriteOK(w, http.StatusOK, result, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load purchase order")
		return
	}
	httpx.WriteOK(w, http.StatusOK, o, "")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if req.SupplierID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "supplierId is required")
		return
	}
	if len(req.Items) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "at least one item is required")
		return
	}
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "productId is required on every item")
			return
		}
		if item.Quantity <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "item quantity must be positive")
			return
		}
		if item.UnitPrice < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "item unitPrice must not be negative")
			return
		}
	}

	status := StatusDraft
	if req.Status != "" {
		status = Status(req.Status)
		if !status.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown order status")
			return
		}
	}

	input := Input{
		SupplierID: req.SupplierID,
		Status:     status,
		Items:      req.Items,
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		input.CreatedBy = &principal.UserID
	}

	o, err := h.repo.Create(r.Context(), input)
	if err != nil {
		h.writeRepoError(w, err, "failed to create purchase order")
		return
	}
	httpx.WriteOK(w, http.StatusCreated, o, "")
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req statusRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	status := Status(strings.TrimSpace(req.Status))
	if !status.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	o, err := h.repo.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.writeRepoError(w, err, "failed to update order status")
		return
	}
	httpx.WriteOK(w, http.StatusOK, o, "")
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.WriteError(w, http.StatusNotFound, "purchase order not found")
	case errors.Is(err, ErrUnknownSupplier):
		httpx.WriteError(w, http.StatusBadRequest, ErrUnknownSupplier.Error())
	case errors.Is(err, ErrUnknownProduct):
		httpx.WriteError(w, http.StatusBadRequest, ErrUnknownProduct.Error())
	default:
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, message)
	}
}
