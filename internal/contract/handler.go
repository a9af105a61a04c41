package contract

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/httpx"
)

const defaultExpiryWindowDays = 30

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type contractRequest struct {
	SupplierID     int64   `json:"supplierId"`
	ContractNumber string  `json:"contractNumber"`
	SignDate       string  `json:"signDate"`
	ExpiryDate     string  `json:"expiryDate"`
	Value          float64 `json:"value"`
	FilePath       *string `json:"filePath"`
	Status         string  `json:"status"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.PageParams(r)
	supplierID := httpx.QueryInt64(r, "supplierId")

	result, err := h.repo.List(r.Context(), supplierID, page, pageSize)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list contracts")
		return
	}
	httpx.WriteOK(w, http.StatusOK, result, "")
}

func (h *Handler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiryWindowDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			httpx.WriteError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	items, err := h.repo.Expiring(r.Context(), days)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list expiring contracts")
		return
	}
	httpx.WriteOK(w, http.StatusOK, items, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid contract id")
		return
	}
	c, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load contract")
		return
	}
	httpx.WriteOK(w, http.StatusOK, c, "")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := parseInput(w, r)
	if !ok {
		return
	}
	c, err := h.repo.Create(r.Context(), input)
	if err != nil {
		h.writeRepoError(w, err, "failed to create contract")
		return
	}
	httpx.WriteOK(w, http.StatusCreated, c, "")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid contract id")
		return
	}
	input, ok := parseInput(w, r)
	if !ok {
		return
	}
	c, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		h.writeRepoError(w, err, "failed to update contract")
		return
	}
	httpx.WriteOK(w, http.StatusOK, c, "")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid contract id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, err, "failed to delete contract")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req contractRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return Input{}, false
	}

	req.ContractNumber = strings.TrimSpace(req.ContractNumber)
	if req.SupplierID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "supplierId is required")
		return Input{}, false
	}
	if req.ContractNumber == "" {
		httpx.WriteError(w, http.StatusBadRequest, "contractNumber is required")
		return Input{}, false
	}
	signDate, err := time.Parse("2006-01-02", req.SignDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "signDate must be formatted YYYY-MM-DD")
		return Input{}, false
	}
	expiryDate, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "expiryDate must be formatted YYYY-MM-DD")
		return Input{}, false
	}
	if !expiryDate.After(signDate) {
		httpx.WriteError(w, http.StatusBadRequest, "expiryDate must be after signDate")
		return Input{}, false
	}
	if req.Value < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "value must not be negative")
		return Input{}, false
	}

	status := StatusActive
	if req.Status != "" {
		status = Status(req.Status)
		if !status.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown contract status")
			return Input{}, false
		}
	}

	return Input{
		SupplierID:     req.SupplierID,
		ContractNumber: req.ContractNumber,
		SignDate:       signDate,
		ExpiryDate:     expiryDate,
		Value:          req.Value,
		FilePath:       req.FilePath,
		Status:         status,
	}, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.WriteError(w, http.StatusNotFound, "contract not found")
	case errors.Is(err, ErrNumberTaken):
		httpx.WriteError(w, http.StatusConflict, ErrNumberTaken.Error())
	case errors.Is(err, ErrUnknownSupplier):
		httpx.WriteError(w, http.StatusBadRequest, ErrUnknownSupplier.Error())
	default:
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, message)
	}
}
