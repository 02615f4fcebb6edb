// Package token issues and checks the credentials handed to clients:
// HS256 access tokens and opaque refresh tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrMissingSigningKey is returned by NewIssuer when no secret is configured.
// It is a startup configuration error, never a request-time one.
var ErrMissingSigningKey = errors.New("token: signing key is not configured")

// ErrInvalidToken reports a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("token: invalid")

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 64

// Claims carried by an access token. Subject holds the decimal user id and
// ID a unique token id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// AccessToken is a signed JWT and the moment it stops being accepted.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer signs and validates access tokens with one symmetric key.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer builds an Issuer. issuer and audience are embedded in every
// token and enforced on validation when non-empty.
func NewIssuer(secret, issuer, audience string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSigningKey
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	i := &Issuer{
		key:      []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// IssueAccessToken signs a token for the given identity, valid for the configured TTL.
func (i *Issuer) IssueAccessToken(userID uint64, email, name string) (AccessToken, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	// NumericDate has second precision; report what the token actually says.
	return AccessToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// IssueRefreshToken returns 64 random bytes, base64 encoded. The value
// carries no metadata; only the registry links it to a user.
func IssueRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
	}
	return i.key, nil
}

// Parse verifies signature, algorithm, expiry, issuer and audience, with no
// clock skew allowance.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}

	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, i.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate reports whether tokenString is currently acceptable. It never panics
// or returns an error for malformed input.
func (i *Issuer) Validate(tokenString string) bool {
	_, err := i.Parse(tokenString)
	return err == nil
}

// DecodeUserID extracts the subject of a correctly signed HS256 token while
// ignoring expiry, issuer and audience, so a lapsed token can still be
// attributed to its user.
func (i *Issuer) DecodeUserID(tokenString string) (uint64, bool) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, i.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
