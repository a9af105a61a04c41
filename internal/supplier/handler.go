package supplier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/httpx"
)

const maxLogoSizeBytes = 2 << 20

// ImageUploader pushes image content to the file host and returns the
// hosted URL plus the asset's public id.
type ImageUploader interface {
	UploadImage(ctx context.Context, content io.Reader, filename, folder string) (string, string, error)
}

// Notifier publishes supplier lifecycle events to interested users.
type Notifier interface {
	SupplierEvent(ctx context.Context, supplierID int64, eventType, message string)
}

type Handler struct {
	repo     *Repository
	uploader ImageUploader
	notifier Notifier
}

func NewHandler(repo *Repository, uploader ImageUploader, notifier Notifier) *Handler {
	return &Handler{repo: repo, uploader: uploader, notifier: notifier}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.PageParams(r)
	filter := ListFilter{
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		PageSize: pageSize,
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown supplier status")
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("rank")); raw != "" {
		rank := Rank(raw)
		if !rank.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown supplier rank")
			return
		}
		filter.Rank = &rank
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("blacklisted")); raw != "" {
		blacklisted, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "blacklisted must be a boolean")
			return
		}
		filter.Blacklisted = &blacklisted
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list suppliers")
		return
	}

	httpx.WriteOK(w, http.StatusOK, result, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	s, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load supplier")
		return
	}

	httpx.WriteOK(w, http.StatusOK, s, "")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	s, err := h.repo.Create(r.Context(), input)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create supplier")
		return
	}

	httpx.WriteOK(w, http.StatusCreated, s, "")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	before, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load supplier")
		return
	}

	s, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		h.writeRepoError(w, err, "failed to update supplier")
		return
	}

	if h.notifier != nil && before.Status != s.Status {
		h.notifier.SupplierEvent(r.Context(), id, "supplier_status_changed",
			fmt.Sprintf("Supplier %s status changed from %s to %s", s.Name, before.Status, s.Status))
	}

	httpx.WriteOK(w, http.StatusOK, s, "")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, err, "failed to delete supplier")
		return
	}

	httpx.WriteOK(w, http.StatusOK, true, "Supplier deleted")
}

type blacklistRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Blacklist(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	var body blacklistRequest
	if !httpx.DecodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Reason) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "reason is required")
		return
	}

	s, err := h.repo.Blacklist(r.Context(), id, body.Reason)
	if err != nil {
		h.writeRepoError(w, err, "failed to blacklist supplier")
		return
	}

	if h.notifier != nil {
		h.notifier.SupplierEvent(r.Context(), id, "supplier_status_changed",
			fmt.Sprintf("Supplier %s was blacklisted: %s", s.Name, body.Reason))
	}

	httpx.WriteOK(w, http.StatusOK, s, "")
}

func (h *Handler) Unblacklist(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	s, err := h.repo.Unblacklist(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to unblacklist supplier")
		return
	}

	httpx.WriteOK(w, http.StatusOK, s, "")
}

type linkProductsRequest struct {
	ProductIDs []int64 `json:"productIds"`
}

func (h *Handler) LinkProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	var body linkProductsRequest
	if !httpx.DecodeJSON(w, r, &body) {
		return
	}
	if len(body.ProductIDs) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "productIds is required")
		return
	}

	if err := h.repo.LinkProducts(r.Context(), id, body.ProductIDs); err != nil {
		h.writeRepoError(w, err, "failed to link products")
		return
	}

	httpx.WriteOK(w, http.StatusOK, true, "Products linked")
}

func (h *Handler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	history, err := h.repo.PriceHistory(r.Context(), id, httpx.QueryInt64(r, "productId"))
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	httpx.WriteOK(w, http.StatusOK, history, "")
}

func (h *Handler) AddPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	productID := httpx.QueryInt64(r, "productId")
	if productID == nil {
		httpx.WriteError(w, http.StatusBadRequest, "productId is required")
		return
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("price")), 64)
	if err != nil || price < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "price must be a non-negative number")
		return
	}

	entry, err := h.repo.AddPrice(r.Context(), id, *productID, price)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to add price")
		return
	}

	httpx.WriteOK(w, http.StatusOK, entry, "")
}

func (h *Handler) PriceComparison(w http.ResponseWriter, r *http.Request) {
	comparison, err := h.repo.PriceComparisonAcross(r.Context(), httpx.QueryInt64(r, "productId"))
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load price comparison")
		return
	}

	httpx.WriteOK(w, http.StatusOK, comparison, "")
}

func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		h.writeRepoError(w, err, "failed to load supplier")
		return
	}

	file, header, ok := httpx.ReadUpload(w, r, maxLogoSizeBytes)
	if !ok {
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		httpx.WriteError(w, http.StatusBadRequest, "file is not an image")
		return
	}

	url, _, err := h.uploader.UploadImage(r.Context(), file, header.Filename, "suppliers")
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusBadGateway, "failed to upload logo")
		return
	}

	if err := h.repo.SetLogoURL(r.Context(), id, url); err != nil {
		h.writeRepoError(w, err, "failed to store logo url")
		return
	}

	httpx.WriteOK(w, http.StatusOK, url, "Logo uploaded")
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	file, _, ok := httpx.ReadUpload(w, r, httpx.MaxJSONBodyBytes*10)
	if !ok {
		return
	}
	defer file.Close()

	imported, err := h.repo.ImportFromExcel(r.Context(), file)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusBadRequest, "failed to import suppliers")
		return
	}

	httpx.WriteOK(w, http.StatusOK, imported, fmt.Sprintf("%d suppliers imported", len(imported)))
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var status *Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed := Status(raw)
		if !parsed.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown supplier status")
			return
		}
		status = &parsed
	}

	content, err := h.repo.ExportToExcel(r.Context(), r.URL.Query().Get("search"), status)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to export suppliers")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="Suppliers.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, sql.ErrNoRows) {
		httpx.WriteError(w, http.StatusNotFound, "supplier not found")
		return
	}
	sentry.CaptureException(err)
	httpx.WriteError(w, http.StatusInternalServerError, message)
}

func parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var input Input
	if !httpx.DecodeJSON(w, r, &input) {
		return Input{}, false
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "name is required")
		return Input{}, false
	}
	if len(input.Name) > 200 {
		httpx.WriteError(w, http.StatusBadRequest, "name is too long")
		return Input{}, false
	}
	if input.Status == "" {
		input.Status = StatusPending
	}
	if !input.Status.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown supplier status")
		return Input{}, false
	}
	if input.Rank == "" {
		input.Rank = RankUnranked
	}
	if !input.Rank.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown supplier rank")
		return Input{}, false
	}

	return input, true
}
