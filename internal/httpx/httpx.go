// Package httpx holds the JSON response envelope and paging helpers shared
// by every handler package.
package httpx

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const MaxJSONBodyBytes = 1 << 20

// Envelope is the uniform response body for business endpoints.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Paged wraps a page of items together with paging metadata.
type Paged[T any] struct {
	Items           []T   `json:"items"`
	TotalCount      int64 `json:"totalCount"`
	Page            int   `json:"page"`
	PageSize        int   `json:"pageSize"`
	TotalPages      int   `json:"totalPages"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
	HasNextPage     bool  `json:"hasNextPage"`
}

func NewPaged[T any](items []T, total int64, page, pageSize int) Paged[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Paged[T]{
		Items:           items,
		TotalCount:      total,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		HasPreviousPage: page > 1,
		HasNextPage:     page < totalPages,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteOK(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Success: false, Message: message, Errors: []string{message}})
}

func WriteErrors(w http.ResponseWriter, status int, message string, errs []string) {
	WriteJSON(w, status, Envelope{Success: false, Message: message, Errors: errs})
}

// DecodeJSON decodes a request body with a size cap and strict field checking.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// PageParams reads page/pageSize query parameters with sane bounds.
func PageParams(r *http.Request) (page, pageSize int) {
	page = queryInt(r, "page", 1)
	pageSize = queryInt(r, "pageSize", 10)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// PathID parses a positive integer path segment.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// QueryInt64 parses an optional integer query parameter.
func QueryInt64(r *http.Request, name string) *int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// ReadUpload pulls the "file" part out of a multipart request, enforcing the
// size limit before the caller streams the content anywhere. On failure the
// error response has already been written and ok is false.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+4096)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "no file provided")
		return nil, nil, false
	}
	if header.Size == 0 {
		file.Close()
		WriteError(w, http.StatusBadRequest, "file is empty")
		return nil, nil, false
	}
	if header.Size > maxBytes {
		file.Close()
		WriteError(w, http.StatusBadRequest, "file size exceeds limit")
		return nil, nil, false
	}
	return file, header, true
}
