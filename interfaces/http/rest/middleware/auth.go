package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"guard-backend/pkg/auth"
	"guard-backend/pkg/common"
)

// Authenticate validates the bearer token and stores the principal in the
// request context. Requests are rate limited per client IP before the token
// is even parsed so invalid-token floods stay cheap.
func Authenticate(validator *auth.JWTValidator, limiter *auth.TokenBucketLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			allowed, _ := limiter.Allow(r.Context(), clientIP)
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
				return
			}

			token := extractToken(r)
			if token == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("token rejected",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				switch err {
				case auth.ErrExpiredToken:
					common.RespondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Token has expired")
				case auth.ErrInvalidSignature:
					common.RespondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid token signature")
				default:
					common.RespondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid token")
				}
				return
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			ctx = common.WithUserRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose principal holds none of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := common.GetUserRole(r.Context())
			if !ok {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Unauthorized")
				return
			}
			for _, required := range roles {
				if role == required {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.RespondError(w, http.StatusForbidden, "UNAUTHORIZED", "Insufficient permissions")
		})
	}
}

// extractToken pulls the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return authHeader
}

// getClientIP extracts the client IP address, preferring proxy headers.
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
