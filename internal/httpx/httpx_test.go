package httpx

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPageParamsBounds(t *testing.T) {
	cases := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"defaults", "", 1, 10},
		{"explicit", "?page=3&pageSize=25", 3, 25},
		{"negative page", "?page=-4", 1, 10},
		{"zero pageSize", "?pageSize=0", 1, 10},
		{"oversized pageSize", "?pageSize=5000", 1, 100},
		{"garbage", "?page=abc&pageSize=xyz", 1, 10},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/suppliers"+tc.query, nil)
		page, pageSize := PageParams(req)
		if page != tc.wantPage || pageSize != tc.wantPageSize {
			t.Errorf("%s: got (%d, %d), want (%d, %d)",
				tc.name, page, pageSize, tc.wantPage, tc.wantPageSize)
		}
	}
}

func TestNewPaged(t *testing.T) {
	paged := NewPaged([]string{"a", "b"}, 42, 2, 10)
	if paged.TotalPages != 5 {
		t.Errorf("TotalPages = %d, want 5", paged.TotalPages)
	}
	if !paged.HasPreviousPage || !paged.HasNextPage {
		t.Errorf("paging flags = (%v, %v), want both true", paged.HasPreviousPage, paged.HasNextPage)
	}

	last := NewPaged([]string{"z"}, 42, 5, 10)
	if last.HasNextPage {
		t.Error("last page should not report a next page")
	}

	empty := NewPaged[string](nil, 0, 1, 10)
	if empty.TotalPages != 0 || empty.HasPreviousPage || empty.HasNextPage {
		t.Errorf("empty result paging off: %+v", empty)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/categories",
		strings.NewReader(`{"name":"Electronics","bogus":true}`))
	rec := httptest.NewRecorder()

	if DecodeJSON(rec, req, &dst) {
		t.Fatal("expected decode to fail on unknown field")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var envelope Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Success {
		t.Fatal("error envelope must not report success")
	}
}

func TestDecodeJSONAcceptsValidBody(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/categories",
		strings.NewReader(`{"name":"Electronics"}`))
	rec := httptest.NewRecorder()

	if !DecodeJSON(rec, req, &dst) {
		t.Fatal("expected decode to succeed")
	}
	if dst.Name != "Electronics" {
		t.Fatalf("decoded name = %q", dst.Name)
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var ok bool
	mux.HandleFunc("GET /api/suppliers/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = PathID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/suppliers/17", nil))
	if !ok || got != 17 {
		t.Fatalf("PathID = (%d, %v), want (17, true)", got, ok)
	}

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/suppliers/0", nil))
	if ok {
		t.Fatal("zero id must not parse")
	}

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/suppliers/banana", nil))
	if ok {
		t.Fatal("non-numeric id must not parse")
	}
}

func multipartRequest(t *testing.T, fieldName, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/suppliers/1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestReadUpload(t *testing.T) {
	rec := httptest.NewRecorder()
	file, header, ok := ReadUpload(rec, multipartRequest(t, "file", "contract.pdf", []byte("pdf bytes")), 1024)
	if !ok {
		t.Fatalf("expected upload to be accepted, got %d: %s", rec.Code, rec.Body.String())
	}
	defer file.Close()
	if header.Filename != "contract.pdf" || header.Size != int64(len("pdf bytes")) {
		t.Fatalf("unexpected header: %+v", header)
	}

	rec = httptest.NewRecorder()
	if _, _, ok := ReadUpload(rec, multipartRequest(t, "attachment", "x.pdf", []byte("data")), 1024); ok {
		t.Fatal("wrong field name must be rejected")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	if _, _, ok := ReadUpload(rec, multipartRequest(t, "file", "empty.pdf", nil), 1024); ok {
		t.Fatal("empty file must be rejected")
	}

	rec = httptest.NewRecorder()
	big := bytes.Repeat([]byte("x"), 2048)
	if _, _, ok := ReadUpload(rec, multipartRequest(t, "file", "big.pdf", big), 1024); ok {
		t.Fatal("oversize file must be rejected")
	}
}
