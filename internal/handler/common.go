// Package handler holds the echo handlers. It is the error boundary of the
// API: service errors become status codes and messages here.
package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ai-travel-planner/internal/middleware"
	"github.com/iliyamo/ai-travel-planner/internal/service"
)

// requestTimeout bounds the store calls of a single request.
const requestTimeout = 5 * time.Second

const msgInternal = "Internal server error"

type messageResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResp{Success: false, Message: msg})
}

func ok(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: msg})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// callerID returns the authenticated user id. Routes behind JWTAuth always
// have one; the false branch covers handlers mounted without it.
func callerID(c echo.Context) (uint64, bool) {
	p, found := middleware.PrincipalFrom(c)
	return p.UserID, found
}

func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

func validationMessage(err error) string {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	return "invalid request"
}

// Date accepts either a calendar date ("2006-01-02") or an RFC 3339
// timestamp and always encodes as RFC 3339.
type Date struct{ time.Time }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.DateOnly, Value: s, Message: ": unrecognised date"}
}

// Ptr returns nil for an unset date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Value returns the zero time for an unset date.
func (d *Date) Value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
