// Package api implements the Gaceta editor REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/gaceta/internal/article"
)

// AuthMiddleware returns middleware that attaches the backend credentials to
// the request context.
// If enabled is false, every request acts with fallback (disabled mode, for
// local development against a single backend account).
// If enabled is true, requests must carry an "Authorization: Bearer <token>"
// header; the token is forwarded to the backend, which decides who the
// principal is.
func AuthMiddleware(enabled bool, fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				if fallback != "" {
					r = r.WithContext(article.WithToken(r.Context(), fallback))
				}
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if !strings.HasPrefix(auth, "Bearer ") || token == "" {
				writeJSON(w, http.StatusUnauthorized, errResponse{Error: "unauthorized", Redirect: loginPath})
				return
			}
			next.ServeHTTP(w, r.WithContext(article.WithToken(r.Context(), token)))
		})
	}
}
