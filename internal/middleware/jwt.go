// Package middleware holds the echo middleware of the API: bearer
// authentication, Redis rate limiting, Redis response caching and request
// logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ai-travel-planner/internal/token"
)

// TokenParser validates an access token and returns its claims.
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// JWTAuth rejects requests without a valid "Authorization: Bearer" access
// token and puts the caller's Principal in the context.
func JWTAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request())
			if !ok {
				return unauthorized(c, "missing bearer token")
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			uid, err := claims.UserID()
			if err != nil || uid == 0 {
				return unauthorized(c, "invalid token subject")
			}
			SetPrincipal(c, Principal{UserID: uid, Email: claims.Email, Name: claims.Name})
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(auth[len(prefix):])
	return raw, raw != ""
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": msg})
}
