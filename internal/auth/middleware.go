package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/wadahkita/service-forum-go/internal/api"
)

type contextKey string

const (
	subjectKey contextKey = "auth.subject"
	bearerKey  contextKey = "auth.bearer"
)

// SubjectFromContext returns the authenticated user id set by Authenticate.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}

// BearerFromContext returns the raw bearer token set by Authenticate. Storage
// sessions are built from it per request.
func BearerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(bearerKey).(string)
	return s
}

// Authenticate verifies the Authorization header and stores the subject id
// and raw token on the request context. Missing, malformed, and expired
// tokens all end the request with 401.
func Authenticate(tokens TokenConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				api.Message(w, http.StatusUnauthorized, "Unauthorized: No token provided")
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				api.Message(w, http.StatusUnauthorized, "Unauthorized: Invalid token format")
				return
			}
			subject, err := tokens.VerifyAccessToken(raw)
			if err != nil {
				api.Message(w, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			ctx = context.WithValue(ctx, bearerKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
