package rating

import (
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

type rateRequest struct {
	Comment *string `json:"comment"`
	Scores  []Score `json:"scores"`
}

func (h *Handler) Criteria(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.Criteria(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list rating criteria")
		return
	}
	httpx.WriteOK(w, http.StatusOK, items, "")
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := httpx.PathID(r, "supplierId")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	var req rateRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Scores) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "at least one score is required")
		return
	}
	seen := make(map[int64]struct{}, len(req.Scores))
	for _, s := range req.Scores {
		if s.CriteriaID <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "criteriaId is required on every score")
			return
		}
		if s.Score < 0 || s.Score > 5 {
			httpx.WriteError(w, http.StatusBadRequest, "scores must be between 0 and 5")
			return
		}
		if _, dup := seen[s.CriteriaID]; dup {
			httpx.WriteError(w, http.StatusBadRequest, "duplicate criteriaId in scores")
			return
		}
		seen[s.CriteriaID] = struct{}{}
	}
	if req.Comment != nil {
		trimmed := strings.TrimSpace(*req.Comment)
		if trimmed == "" {
			req.Comment = nil
		} else {
			req.Comment = &trimmed
		}
	}

	input := Input{
		SupplierID: supplierID,
		Comment:    req.Comment,
		Scores:     req.Scores,
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		input.RatedBy = &principal.UserID
	}

	rating, err := h.repo.Rate(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrUnknownCriterion) {
			httpx.WriteError(w, http.StatusBadRequest, ErrUnknownCriterion.Error())
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to store rating")
		return
	}
	httpx.WriteOK(w, http.StatusCreated, rating, "")
}

func (h *Handler) ListBySupplier(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := httpx.PathID(r, "supplierId")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	items, err := h.repo.ListBySupplier(r.Context(), supplierID)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list ratings")
		return
	}
	httpx.WriteOK(w, http.StatusOK, items, "")
}
