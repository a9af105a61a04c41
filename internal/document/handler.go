package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"

	"vendorhub/internal/auth"
	"vendorhub/internal/httpx"
)

const maxDocumentSizeBytes = 10 << 20

// FileStore uploads raw file content and deletes assets by public id.
type FileStore interface {
	UploadFile(ctx context.Context, content io.Reader, filename, folder string) (string, string, error)
	Delete(ctx context.Context, publicID string) error
}

// Notifier publishes supplier lifecycle events to interested users.
type Notifier interface {
	SupplierEvent(ctx context.Context, supplierID int64, eventType, message string)
}

type Handler struct {
	repo     *Repository
	store    FileStore
	notifier Notifier
}

func NewHandler(repo *Repository, store FileStore, notifier Notifier) *Handler {
	return &Handler{repo: repo, store: store, notifier: notifier}
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
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	httpx.WriteOK(w, http.StatusOK, items, "")
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := httpx.PathID(r, "supplierId")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	exists, err := h.repo.SupplierExists(r.Context(), supplierID)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to verify supplier")
		return
	}
	if !exists {
		httpx.WriteError(w, http.StatusNotFound, "supplier not found")
		return
	}

	file, header, ok := httpx.ReadUpload(w, r, maxDocumentSizeBytes)
	if !ok {
		return
	}
	defer file.Close()

	url, publicID, err := h.store.UploadFile(r.Context(), file, header.Filename, "documents")
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusBadGateway, "document upload failed")
		return
	}

	doc := Document{
		SupplierID: supplierID,
		FileName:   header.Filename,
		URL:        url,
		FileSize:   header.Size,
		PublicID:   &publicID,
	}
	if ct := header.Header.Get("Content-Type"); ct != "" {
		doc.ContentType = &ct
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		doc.UploadedBy = &principal.UserID
	}

	created, err := h.repo.Create(r.Context(), doc)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	h.notifier.SupplierEvent(r.Context(), supplierID, "document_uploaded",
		fmt.Sprintf("Document %q was uploaded", header.Filename))

	httpx.WriteOK(w, http.StatusCreated, created, "Document uploaded")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, http.StatusNotFound, "document not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load document")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	// Remote cleanup is best-effort; the metadata row is already gone.
	if doc.PublicID != nil {
		if err := h.store.Delete(r.Context(), *doc.PublicID); err != nil {
			sentry.CaptureException(err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
