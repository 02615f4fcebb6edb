package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
)

// User is the profile the API returns for the signed-in account.
type User struct {
	ID              uint64     `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	FullName        string     `json:"fullName"`
	PhoneNumber     *string    `json:"phoneNumber,omitempty"`
	Country         *string    `json:"country,omitempty"`
	City            *string    `json:"city,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	CreatedAt       time.Time  `json:"createdDate"`
	LastLoginAt     *time.Time `json:"lastLoginDate,omitempty"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	PhoneNumber *string    `json:"phoneNumber,omitempty"`
	Country     *string    `json:"country,omitempty"`
	City        *string    `json:"city,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
}

type sessionPayload struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         *User     `json:"user"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

// Session holds the tokens of one signed-in user. CurrentUser and SignedIn
// mirror the stored state and notify subscribers whenever it changes.
type Session struct {
	baseURL string
	hc      *http.Client
	store   Storage
	now     func() time.Time
	log     *zap.Logger

	CurrentUser *Value[*User]
	SignedIn    *Value[bool]
}

type SessionOption func(*Session)

// WithHTTPClient sets the client used for auth calls. It must not route
// through a Transport built on the same Session.
func WithHTTPClient(hc *http.Client) SessionOption { return func(s *Session) { s.hc = hc } }

func WithClock(now func() time.Time) SessionOption { return func(s *Session) { s.now = now } }

func WithLogger(log *zap.Logger) SessionOption { return func(s *Session) { s.log = log } }

// NewSession restores whatever store already holds.
func NewSession(baseURL string, store Storage, opts ...SessionOption) *Session {
	s := &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
		store:   store,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = logger.OrNop(s.log)
	s.CurrentUser = NewValue(s.storedUser())
	s.SignedIn = NewValue(s.IsAuthenticated())
	return s
}

// AccessToken returns the stored access token, or "".
func (s *Session) AccessToken() string {
	v, _ := s.store.Get(KeyAuthToken)
	return v
}

func (s *Session) refreshToken() string {
	v, _ := s.store.Get(KeyRefreshToken)
	return v
}

// IsAuthenticated reports whether an access token is stored and its own exp
// claim has not passed. The signature is not checked here.
func (s *Session) IsAuthenticated() bool {
	tok := s.AccessToken()
	return tok != "" && !tokenExpired(tok, s.now())
}

// tokenExpired decodes the exp claim without verifying the token. Anything
// unreadable counts as expired.
func tokenExpired(tok string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// Login signs in and stores the new session. On failure the stored state is
// left as it was.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	var p sessionPayload
	body := map[string]string{"email": email, "password": password}
	if err := doJSON(ctx, s.hc, http.MethodPost, s.url("/api/auth/login"), body, &p); err != nil {
		return nil, err
	}
	if err := s.open(p); err != nil {
		return nil, err
	}
	return p.User, nil
}

// Register creates an account and stores its session.
func (s *Session) Register(ctx context.Context, in RegisterRequest) (*User, error) {
	var p sessionPayload
	if err := doJSON(ctx, s.hc, http.MethodPost, s.url("/api/auth/register"), in, &p); err != nil {
		return nil, err
	}
	if err := s.open(p); err != nil {
		return nil, err
	}
	return p.User, nil
}

// Logout revokes the refresh token on the server when the access token is
// still live, then clears local state whatever the outcome. It never fails.
func (s *Session) Logout(ctx context.Context) {
	access, refresh := s.AccessToken(), s.refreshToken()
	if access != "" && refresh != "" && !tokenExpired(access, s.now()) {
		err := doJSON(ctx, s.hc, http.MethodPost, s.url("/api/auth/logout"), refreshBody{refresh}, nil)
		if err != nil {
			s.log.Warn("server logout failed", zap.Error(err))
		}
	}
	s.clear()
}

// Refresh trades the stored refresh token for a new access token and returns
// it. A failed refresh clears the whole local session.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	refresh := s.refreshToken()
	if refresh == "" {
		return "", ErrNoRefreshToken
	}

	var p sessionPayload
	err := doJSON(ctx, s.hc, http.MethodPost, s.url("/api/auth/refresh-token"), refreshBody{refresh}, &p)
	if err == nil && p.Token == "" {
		err = errors.New("response carried no token")
	}
	if err != nil {
		s.clear()
		return "", fmt.Errorf("refresh session: %w", err)
	}

	if err := s.store.Set(KeyAuthToken, p.Token); err != nil {
		return "", fmt.Errorf("store access token: %w", err)
	}
	if p.RefreshToken != "" {
		if err := s.store.Set(KeyRefreshToken, p.RefreshToken); err != nil {
			return "", fmt.Errorf("store refresh token: %w", err)
		}
	}
	if p.User != nil {
		if err := s.storeUser(p.User); err != nil {
			return "", err
		}
		s.CurrentUser.Set(p.User)
	}
	s.SignedIn.Set(s.IsAuthenticated())
	return p.Token, nil
}

func (s *Session) open(p sessionPayload) error {
	if p.Token == "" || p.RefreshToken == "" {
		return errors.New("session response carried no tokens")
	}
	if err := s.store.Set(KeyAuthToken, p.Token); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := s.store.Set(KeyRefreshToken, p.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if p.User != nil {
		if err := s.storeUser(p.User); err != nil {
			return err
		}
	}
	s.CurrentUser.Set(p.User)
	s.SignedIn.Set(s.IsAuthenticated())
	return nil
}

func (s *Session) clear() {
	if err := s.store.Delete(KeyAuthToken, KeyRefreshToken, KeyCurrentUser); err != nil {
		s.log.Warn("clear stored session", zap.Error(err))
	}
	s.CurrentUser.Set(nil)
	s.SignedIn.Set(false)
}

func (s *Session) storeUser(u *User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.store.Set(KeyCurrentUser, string(raw)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (s *Session) storedUser() *User {
	raw, ok := s.store.Get(KeyCurrentUser)
	if !ok || raw == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

func (s *Session) url(path string) string { return s.baseURL + path }
