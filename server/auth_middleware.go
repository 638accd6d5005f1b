package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySubject stores the authenticated user ID
	ContextKeySubject ContextKey = "subject"
	// ContextKeyRole stores the authenticated role
	ContextKeyRole ContextKey = "role"
	// ContextKeyCourses stores the caller's enrolled course IDs
	ContextKeyCourses ContextKey = "courses"
)

// Roles the attendance API distinguishes between.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// RequireAuth validates the Bearer token on API routes and injects the
// caller's identity into the request context. The identity provider is an
// external collaborator; this middleware only verifies its HS256 signature.
func (s *Server) RequireAuth(role string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}

			secret := s.config.GetAPIAuthSecret()
			if secret == "" {
				writeError(w, http.StatusServiceUnavailable, "API auth is not configured")
				return
			}

			parsed, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := parsed.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			sub, _ := claims["sub"].(string)
			claimRole, _ := claims["role"].(string)
			if sub == "" || claimRole != role {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, sub)
			ctx = context.WithValue(ctx, ContextKeyRole, claimRole)
			if courses, ok := claims["courses"].([]interface{}); ok {
				ctx = context.WithValue(ctx, ContextKeyCourses, toStringSlice(courses))
			}

			next(w, r.WithContext(ctx))
		}
	}
}

func subjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(ContextKeySubject).(string)
	return sub
}

func coursesFromContext(ctx context.Context) []string {
	courses, _ := ctx.Value(ContextKeyCourses).([]string)
	return courses
}

func toStringSlice(in []interface{}) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
