// Package registry maps opaque refresh tokens to the user they were issued
// to. Every backend keys entries by the SHA-256 digest of the token, never
// the raw value.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrTokenNotFound is returned when a token has no live entry: never
// issued, already consumed, revoked or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// Registry is the contract Auth Core depends on.
type Registry interface {
	// Put records token for userID, replacing any previous mapping.
	Put(ctx context.Context, token string, userID uint64) error
	// Resolve returns the user a token belongs to without using it up.
	Resolve(ctx context.Context, token string) (uint64, error)
	// Consume resolves and removes token in one atomic step. Of several
	// concurrent calls with the same token at most one succeeds.
	Consume(ctx context.Context, token string) (uint64, error)
	// Revoke removes token. Revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error
	// RevokeUser removes every token issued to userID.
	RevokeUser(ctx context.Context, userID uint64) error
}

type options struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a backend.
type Option func(*options)

// WithTTL bounds how long an unused token stays valid. Zero, the default,
// keeps tokens until they are consumed or revoked.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.ttl < 0 {
		o.ttl = 0
	}
	return o
}

// expiry returns the deadline for a token stored now, or nil without a TTL.
func (o options) expiry() *time.Time {
	if o.ttl == 0 {
		return nil
	}
	t := o.now().UTC().Add(o.ttl)
	return &t
}
