package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func protected(t *testing.T) (http.Handler, *Principal) {
	t.Helper()
	var seen Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("expected a principal in the request context")
		}
		seen = principal
		w.WriteHeader(http.StatusNoContent)
	})
	return Middleware(testIssuer(time.Hour), inner), &seen
}

func TestMiddlewareAcceptsBearerHeader(t *testing.T) {
	handler, seen := protected(t)
	token, _, err := testIssuer(time.Hour).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/suppliers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if seen.UserID != testUser().ID || seen.Role != RoleManager {
		t.Fatalf("unexpected principal: %+v", seen)
	}
}

func TestMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	handler, _ := protected(t)

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc123",
		"no token":     "Bearer ",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/suppliers", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	handler, _ := protected(t)
	token, _, err := testIssuer(-time.Minute).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/suppliers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestOnlyStreamMiddlewareAcceptsQueryToken(t *testing.T) {
	issuer := testIssuer(time.Hour)
	token, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/stream?access_token="+token, nil)
	rec := httptest.NewRecorder()
	StreamMiddleware(issuer, inner).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("stream middleware: status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/suppliers?access_token="+token, nil)
	rec = httptest.NewRecorder()
	Middleware(issuer, inner).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("plain middleware: status = %d, want 401", rec.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	adminOnly := RequireRoles(RoleAdmin)(inner)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/abc", nil)
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/users/abc", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), Principal{UserID: "u1", Role: RoleStaff}))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff caller: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/users/abc", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), Principal{UserID: "u1", Role: RoleAdmin}))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin caller: status = %d, want 204", rec.Code)
	}
}
