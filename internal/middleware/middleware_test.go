package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ai-travel-planner/internal/config"
	"github.com/iliyamo/ai-travel-planner/internal/token"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	iss, err := token.NewIssuer("mw-secret", "AITravelPlanner", "AITravelPlannerUsers", time.Hour)
	require.NoError(t, err)
	return iss
}

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	iss := newIssuer(t)
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": p.UserID, "email": p.Email})
	}, JWTAuth(iss))

	tok, err := iss.IssueAccessToken(42, "ada@example.com", "Ada")
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + tok.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"email":"ada@example.com"}`, rec.Body.String())

	for name, hdr := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer ",
		"garbage token":  "Bearer not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", map[string]string{"Authorization": hdr})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	expired, err := token.NewIssuer("mw-secret", "AITravelPlanner", "AITravelPlannerUsers", time.Hour,
		token.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	old, err := expired.IssueAccessToken(42, "ada@example.com", "Ada")
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + old.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit_BlocksAfterCapacity(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb, nil))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodPost, "/login", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(e, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// another client address has its own bucket
	rec = serve(e, http.MethodPost, "/login", map[string]string{"X-Real-IP": "10.0.0.9"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_SubSecondTTLStillLimits(t *testing.T) {
	rdb := newRedis(t)
	// not normalized: the interval rounds to 0ms and the TTL to 0s
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: 500 * time.Microsecond,
		TTL:            200 * time.Millisecond,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb, nil))

	require.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/login", nil).Code)
}

func TestTTLSeconds(t *testing.T) {
	assert.EqualValues(t, 1, ttlSeconds(0))
	assert.EqualValues(t, 1, ttlSeconds(200*time.Millisecond))
	assert.EqualValues(t, 2, ttlSeconds(1500*time.Millisecond))
	assert.EqualValues(t, 600, ttlSeconds(10*time.Minute))
}

func TestRateLimit_DisabledOrNoRedis(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, nil, nil))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", nil).Code)
	}
}

func TestResponseCache(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      []string{"GET"},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
	var calls atomic.Int32
	e := echo.New()
	e.GET("/search", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"q": c.QueryParam("q")})
	}, ResponseCache(cfg, rdb, nil))

	first := serve(e, http.MethodGet, "/search?q=rome", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/search?q=rome", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")

	other := serve(e, http.MethodGet, "/search?q=oslo", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestResponseCache_SkipsErrorsAndLargeBodies(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8}
	var calls atomic.Int32
	e := echo.New()
	e.GET("/fail", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusBadRequest, echo.Map{"e": 1})
	}, ResponseCache(cfg, rdb, nil))
	e.GET("/big", func(c echo.Context) error {
		calls.Add(1)
		return c.String(http.StatusOK, "a body longer than eight bytes")
	}, ResponseCache(cfg, rdb, nil))

	serve(e, http.MethodGet, "/fail", nil)
	serve(e, http.MethodGet, "/fail", nil)
	serve(e, http.MethodGet, "/big", nil)
	rec := serve(e, http.MethodGet, "/big", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(4), calls.Load())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}
