package auth

import (
	"context"
	"net/http"
	"strings"

	"vendorhub/internal/httpx"
)

// Principal is the authenticated identity attached to the request context.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   Role
}

type contextKey struct{}

func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(contextKey{}).(Principal)
	return principal, ok
}

// Middleware authenticates requests via the Authorization: Bearer header.
func Middleware(issuer *TokenIssuer, next http.Handler) http.Handler {
	return middleware(issuer, false, next)
}

// StreamMiddleware additionally accepts the token as an access_token query
// parameter. This exception exists only for the notification stream, whose
// EventSource transport cannot set custom headers.
func StreamMiddleware(issuer *TokenIssuer, next http.Handler) http.Handler {
	return middleware(issuer, true, next)
}

func middleware(issuer *TokenIssuer, allowQueryToken bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r, allowQueryToken)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "missing or malformed authorization token")
			return
		}

		claims, err := issuer.Verify(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		role, ok := ParseRole(claims.Role)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token role")
			return
		}

		principal := Principal{
			UserID: claims.Subject,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   role,
		}

		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRoles gates a handler on the caller's primary role. Must run
// inside Middleware.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request, allowQueryToken bool) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		token := strings.TrimSpace(parts[1])
		return token, token != ""
	}

	if allowQueryToken {
		token := strings.TrimSpace(r.URL.Query().Get("access_token"))
		if token != "" {
			return token, true
		}
	}

	return "", false
}
