package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"intia/internal/access"
	"intia/internal/jwttoken"
	usermodels "intia/internal/user/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/platform/httputil"
	"intia/pkg/platform/sentinel"
)

// TokenCookie is the HTTP-only cookie carrying the access token for
// browser sessions. Bearer headers take precedence when both are present.
const TokenCookie = "token"

// TokenValidator validates an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// UserLoader resolves an authenticated user id to the full account.
type UserLoader interface {
	FindByID(ctx context.Context, userID domain.UserID) (*usermodels.User, error)
}

type contextKeyUser struct{}

// CurrentUser retrieves the authenticated user from the context.
// Returns nil when RequireAuth did not run.
func CurrentUser(ctx context.Context) *usermodels.User {
	user, _ := ctx.Value(contextKeyUser{}).(*usermodels.User)
	return user
}

// WithUser injects an authenticated user into a context.
// Useful for handler tests that bypass the middleware chain.
func WithUser(ctx context.Context, user *usermodels.User) context.Context {
	return context.WithValue(ctx, contextKeyUser{}, user)
}

// tokenFromRequest extracts the access token from the Authorization header
// or the session cookie.
func tokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth authenticates the request, loads the acting user, and rejects
// inactive accounts. Handlers downstream read the user via CurrentUser.
func RequireAuth(validator TokenValidator, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := tokenFromRequest(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid credentials"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			userID, err := domain.ParseUserID(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown user"))
					return
				}
				logger.ErrorContext(ctx, "failed to load authenticated user",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication failed"))
				return
			}
			if !user.IsActive {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "inactive user"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// RequireAdmin rejects non-ADMIN callers before the handler runs.
// Must be mounted after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil || user.Role != access.RoleAdmin {
				logger.WarnContext(r.Context(), "admin-only endpoint denied",
					"request_id", GetRequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
