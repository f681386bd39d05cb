package middleware

import (
	"context"
	"net/http"
	"strings"

	"snapintake/internal/service"
)

type contextKey string

const ReviewerIDKey contextKey = "reviewerId"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireReviewer validates reviewer JWT from the Authorization header
func (m *AuthMiddleware) RequireReviewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateReviewerToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ReviewerIDKey, claims.ReviewerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReviewerID extracts the reviewer id from a request context
func GetReviewerID(ctx context.Context) string {
	if v, ok := ctx.Value(ReviewerIDKey).(string); ok {
		return v
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
