// Package middleware contains reusable HTTP middleware: JWT
// authentication, role enforcement, rate limiting and response caching.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/chaudhuree/home-repair/internal/model"
)

// UserLookup resolves the token subject to a live user record so deleted
// accounts and stale role claims are rejected even while a token is
// within its TTL. *repository.UserRepo satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// reject writes an error in the standard response envelope. Middleware
// cannot return application errors through the handler chain, so the
// envelope is produced here directly.
func reject(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{
		"statusCode": status,
		"success":    false,
		"message":    message,
		"data":       nil,
	})
}

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the caller's id and role into the request context.
// Handlers read them via c.Get("user_id") and c.Get("role").
func JWTAuth(secret string, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return reject(c, http.StatusUnauthorized, "You are not authorized")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return reject(c, http.StatusUnauthorized, "Invalid or expired token")
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return reject(c, http.StatusUnauthorized, "Invalid or expired token")
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return reject(c, http.StatusUnauthorized, "Invalid or expired token")
			}

			u, err := users.GetByID(c.Request().Context(), sub)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return reject(c, http.StatusUnauthorized, "User no longer exists")
				}
				return reject(c, http.StatusInternalServerError, "Something went wrong")
			}

			// The role comes from the live record, not the claim, so a
			// role change takes effect before the token expires.
			c.Set("user_id", u.ID)
			c.Set("role", u.Role)
			return next(c)
		}
	}
}
