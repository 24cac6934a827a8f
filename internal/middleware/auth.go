// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/stockease/internal/core"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	ClaimsKey   contextKey = "jwt_claims"
)

type AccessTokenClaims struct {
	UserID    string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

// BlacklistChecker reports whether an access token's jti was revoked at
// logout. Failing open here would let a logged-out token keep working, so a
// check error is treated as unauthorized.
type BlacklistChecker interface {
	IsAccessTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

func Authenticator(
	verifier TokenVerifier,
	blacklist BlacklistChecker,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			if blacklist != nil && claims.JTI != "" {
				revoked, err := blacklist.IsAccessTokenBlacklisted(
					r.Context(),
					claims.JTI,
				)
				if err != nil {
					slog.Error("blacklist check failed", "error", err)
					core.JSONError(w, core.TokenInvalidError())
					return
				}
				if revoked {
					core.JSONError(w, core.TokenRevokedError())
					return
				}
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r.Context())

			if userRole == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			if _, ok := roleSet[userRole]; !ok {
				core.JSONError(
					w,
					core.ForbiddenError("insufficient permissions"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole("admin")(next)
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if role, ok := ctx.Value(UserRoleKey).(string); ok {
		return role
	}
	return ""
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

func IsAdmin(ctx context.Context) bool {
	return GetUserRole(ctx) == "admin"
}
