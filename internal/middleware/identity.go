package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// Principal is the authenticated caller, built once from a validated
// access token.
type Principal struct {
	UserID uint64
	Email  string
	Name   string
}

// PrincipalFrom returns the caller placed in c by JWTAuth.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok && p.UserID != 0
}

// SetPrincipal stores p in c. Used by JWTAuth and by handler tests.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

// subjectKey identifies the caller in rate limit and cache keys: the user
// id when authenticated, "anon" otherwise.
func subjectKey(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
