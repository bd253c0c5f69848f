package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserContextKey is the key for storing user in context
	UserContextKey ContextKey = "user"
	// ClaimsContextKey is the key for storing claims in context
	ClaimsContextKey ContextKey = "claims"
)

// UserLoader looks up the user a token was issued for
type UserLoader interface {
	User(ctx context.Context, id uint32) (*types.User, error)
}

// UserLoaderFunc adapts a function to UserLoader
type UserLoaderFunc func(ctx context.Context, id uint32) (*types.User, error)

func (f UserLoaderFunc) User(ctx context.Context, id uint32) (*types.User, error) {
	return f(ctx, id)
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	return parts[1], nil
}

// RequireAuth is middleware that validates the bearer token and loads the
// caller. Tokens of unknown or inactive users are rejected.
func RequireAuth(auth *Auth, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := auth.ValidateAccessToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx := c.Request().Context()
			user, err := users.User(ctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			if err != nil {
				return err
			}
			if !user.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "user is inactive")
			}

			logger := zerolog.Ctx(ctx).With().
				Uint32("user_id", user.ID).
				Str("user", user.Name).
				Logger()
			c.SetRequest(c.Request().WithContext(logger.WithContext(ctx)))

			c.Set(string(ClaimsContextKey), claims)
			c.Set(string(UserContextKey), user)

			return next(c)
		}
	}
}

// RequireAdmin is middleware that requires a staff user
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := CurrentUser(c)
			if err != nil {
				return err
			}
			if !user.IsStaff {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

// GetClaims retrieves claims from echo context
func GetClaims(c echo.Context) (*Claims, error) {
	claims, ok := c.Get(string(ClaimsContextKey)).(*Claims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return claims, nil
}

// CurrentUser retrieves the authenticated caller from echo context
func CurrentUser(c echo.Context) (*types.User, error) {
	user, ok := c.Get(string(UserContextKey)).(*types.User)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return user, nil
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c echo.Context) bool {
	user, err := CurrentUser(c)
	if err != nil {
		return false
	}
	return user.IsStaff
}
