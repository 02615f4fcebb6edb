package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("client-test"))
	require.NoError(t, err)
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// offline fails the test on any request.
func offline(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func storeWith(access, refresh string) *MemoryStorage {
	s := NewMemoryStorage()
	if access != "" {
		_ = s.Set(KeyAuthToken, access)
	}
	if refresh != "" {
		_ = s.Set(KeyRefreshToken, refresh)
	}
	return s
}

func TestIsAuthenticatedDecodesExpiryLocally(t *testing.T) {
	srv := offline(t)

	expired := NewSession(srv.URL, storeWith(signed(t, time.Now().Add(-time.Minute)), "r1"))
	assert.False(t, expired.IsAuthenticated())
	assert.False(t, expired.SignedIn.Get())

	garbage := NewSession(srv.URL, storeWith("not-a-jwt", "r1"))
	assert.False(t, garbage.IsAuthenticated())

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, NewSession(srv.URL, storeWith(noExp, "")).IsAuthenticated())

	assert.False(t, NewSession(srv.URL, NewMemoryStorage()).IsAuthenticated())

	live := NewSession(srv.URL, storeWith(signed(t, time.Now().Add(time.Hour)), "r1"))
	assert.True(t, live.IsAuthenticated())
	assert.True(t, live.SignedIn.Get())

	clock := NewSession(srv.URL, storeWith(signed(t, time.Now().Add(time.Hour)), ""),
		WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) }))
	assert.False(t, clock.IsAuthenticated())
}

func TestLogoutWithExpiredTokenSkipsServer(t *testing.T) {
	srv := offline(t)
	store := storeWith(signed(t, time.Now().Add(-time.Minute)), "r1")
	_ = store.Set(KeyCurrentUser, `{"id":7,"email":"ada@example.com"}`)
	s := NewSession(srv.URL, store)
	require.NotNil(t, s.CurrentUser.Get())

	s.Logout(context.Background())

	assert.Empty(t, s.AccessToken())
	_, ok := store.Get(KeyRefreshToken)
	assert.False(t, ok)
	_, ok = store.Get(KeyCurrentUser)
	assert.False(t, ok)
	assert.Nil(t, s.CurrentUser.Get())
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		var body refreshBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "r1", body.RefreshToken)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
	}))
	defer srv.Close()

	s := NewSession(srv.URL, storeWith(signed(t, time.Now().Add(time.Hour)), "r1"))
	var seen []bool
	cancel := s.SignedIn.Subscribe(func(v bool) { seen = append(seen, v) })
	defer cancel()

	s.Logout(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, []bool{true, false}, seen)
}

func TestRefreshWithoutTokenMakesNoCall(t *testing.T) {
	srv := offline(t)
	s := NewSession(srv.URL, storeWith(signed(t, time.Now().Add(time.Hour)), ""))

	_, err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.NotEmpty(t, s.AccessToken())
}

func TestRefreshKeepsRefreshTokenWhenNoneReturned(t *testing.T) {
	fresh := signed(t, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": fresh})
	}))
	defer srv.Close()

	store := storeWith(signed(t, time.Now().Add(-time.Minute)), "r1")
	s := NewSession(srv.URL, store)
	require.False(t, s.SignedIn.Get())

	tok, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, tok)
	assert.Equal(t, fresh, s.AccessToken())
	rt, _ := store.Get(KeyRefreshToken)
	assert.Equal(t, "r1", rt)
	assert.True(t, s.SignedIn.Get())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid refresh token"})
	}))
	defer srv.Close()

	s := NewSession(srv.URL, storeWith(signed(t, time.Now().Add(time.Hour)), "r1"))
	_, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid refresh token", ae.Message)
	assert.Empty(t, s.AccessToken())
	assert.False(t, s.SignedIn.Get())
}

func TestLoginStoresSessionAndFailureLeavesState(t *testing.T) {
	fresh := signed(t, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "token": fresh, "refreshToken": "r1",
			"user": map[string]any{"id": 7, "email": body["email"]},
		})
	}))
	defer srv.Close()

	store := NewMemoryStorage()
	s := NewSession(srv.URL, store)

	_, err := s.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, s.AccessToken())
	assert.Nil(t, s.CurrentUser.Get())

	u, err := s.Login(context.Background(), "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, uint64(7), s.CurrentUser.Get().ID)

	raw, ok := store.Get(KeyCurrentUser)
	require.True(t, ok)
	assert.Contains(t, raw, "ada@example.com")

	restored := NewSession(srv.URL, store)
	assert.Equal(t, "ada@example.com", restored.CurrentUser.Get().Email)
	assert.True(t, restored.SignedIn.Get())
}
