package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/stenolabs/demandgen/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// requireAuth verifies the bearer token and stashes its claims in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing bearer token"))
			return
		}
		claims, err := s.issuer.VerifyAccess(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid access token"))
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates firm administration endpoints. It assumes requireAuth
// already ran.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r)
		if claims == nil || claims.Role != "admin" {
			writeError(w, http.StatusForbidden, fmt.Errorf("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAttorney gates actions with legal weight, finalizing and exporting.
// Paralegals prepare letters but an attorney signs off.
func (s *Server) requireAttorney(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r)
		if claims == nil || (claims.Role != "admin" && claims.Role != "attorney") {
			writeError(w, http.StatusForbidden, fmt.Errorf("attorney role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsContextKey).(*auth.Claims)
	return claims
}
