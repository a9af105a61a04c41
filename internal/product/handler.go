package product

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/httpx"
)

const maxImageSizeBytes = 2 << 20

// ImageUploader pushes image content to the file host and returns the
// hosted URL plus the asset's public id.
type ImageUploader interface {
	UploadImage(ctx context.Context, content io.Reader, filename, folder string) (string, string, error)
}

type Handler struct {
	repo     *Repository
	uploader ImageUploader
}

func NewHandler(repo *Repository, uploader ImageUploader) *Handler {
	return &Handler{repo: repo, uploader: uploader}
}

type productRequest struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	CategoryID   int64   `json:"categoryId"`
	Unit         *string `json:"unit"`
	Description  *string `json:"description"`
	MinStock     int     `json:"minStock"`
	MaxStock     int     `json:"maxStock"`
	CurrentStock int     `json:"currentStock"`
	IsActive     *bool   `json:"isActive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.PageParams(r)
	filter := ListFilter{
		Search:     r.URL.Query().Get("search"),
		CategoryID: httpx.QueryInt64(r, "categoryId"),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	httpx.WriteOK(w, http.StatusOK, result, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load product")
		return
	}
	httpx.WriteOK(w, http.StatusOK, p, "")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Create(r.Context(), input)
	if err != nil {
		h.writeRepoError(w, err, "failed to create product")
		return
	}
	httpx.WriteOK(w, http.StatusCreated, p, "")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	input, ok := h.parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		h.writeRepoError(w, err, "failed to update product")
		return
	}
	httpx.WriteOK(w, http.StatusOK, p, "")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		h.writeRepoError(w, err, "failed to load product")
		return
	}

	file, header, ok := httpx.ReadUpload(w, r, maxImageSizeBytes)
	if !ok {
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		httpx.WriteError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	url, _, err := h.uploader.UploadImage(r.Context(), file, header.Filename, "products")
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusBadGateway, "image upload failed")
		return
	}
	if err := h.repo.SetImageURL(r.Context(), id, url); err != nil {
		h.writeRepoError(w, err, "failed to store image url")
		return
	}
	httpx.WriteOK(w, http.StatusOK, url, "Image uploaded")
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	file, _, ok := httpx.ReadUpload(w, r, httpx.MaxJSONBodyBytes*10)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.repo.ImportFromExcel(r.Context(), file)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusBadRequest, "import failed: "+err.Error())
		return
	}
	httpx.WriteOK(w, http.StatusOK, result, "Import finished")
}

func (h *Handler) parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req productRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return Input{}, false
	}

	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.SKU == "":
		httpx.WriteError(w, http.StatusBadRequest, "sku is required")
		return Input{}, false
	case req.Name == "" || len(req.Name) > 200:
		httpx.WriteError(w, http.StatusBadRequest, "name is required and must be at most 200 characters")
		return Input{}, false
	case req.CategoryID <= 0:
		httpx.WriteError(w, http.StatusBadRequest, "categoryId is required")
		return Input{}, false
	case req.MinStock < 0 || req.MaxStock < 0 || req.CurrentStock < 0:
		httpx.WriteError(w, http.StatusBadRequest, "stock levels must not be negative")
		return Input{}, false
	case req.MaxStock > 0 && req.MinStock > req.MaxStock:
		httpx.WriteError(w, http.StatusBadRequest, "minStock must not exceed maxStock")
		return Input{}, false
	}

	input := Input{
		SKU:          req.SKU,
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		Unit:         req.Unit,
		Description:  req.Description,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		CurrentStock: req.CurrentStock,
		IsActive:     true,
	}
	if req.IsActive != nil {
		input.IsActive = *req.IsActive
	}
	return input, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.WriteError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, ErrSKUTaken):
		httpx.WriteError(w, http.StatusConflict, ErrSKUTaken.Error())
	case errors.Is(err, ErrUnknownCategory):
		httpx.WriteError(w, http.StatusBadRequest, ErrUnknownCategory.Error())
	default:
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, message)
	}
}
