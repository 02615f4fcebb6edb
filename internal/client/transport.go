package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Transport attaches the session's bearer token to API requests and, when
// the API answers 401, refreshes the session once and replays the request.
// Concurrent 401s share a single refresh call. If the refresh fails the
// session is logged out and the original 401 is returned.
type Transport struct {
	Session *Session
	Base    http.RoundTripper

	group singleflight.Group
}

func NewTransport(s *Session, base http.RoundTripper) *Transport {
	return &Transport{Session: s, Base: base}
}

// credentialPaths answer 401 for bad credentials, not for an expired token.
var credentialPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/refresh-token",
	"/api/auth/logout",
}

func isAPI(r *http.Request) bool { return strings.Contains(r.URL.Path, "/api/") }

func isCredentialCall(r *http.Request) bool {
	for _, p := range credentialPaths {
		if strings.HasSuffix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isAPI(req) {
		return t.base().RoundTrip(req)
	}

	sent := t.Session.AccessToken()
	resp, err := t.base().RoundTrip(withBearer(req, req.Body, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isCredentialCall(req) {
		return resp, err
	}

	fresh, err := t.refresh(req.Context(), sent)
	if err != nil {
		return resp, nil
	}
	body, err := rewind(req)
	if err != nil {
		return resp, nil
	}
	drain(resp)
	return t.base().RoundTrip(withBearer(req, body, fresh))
}

// refresh returns a token newer than sent. If another request already
// refreshed, its token is reused; otherwise the call joins the one in flight
// or starts it. The refresh itself ignores the caller's cancellation.
func (t *Transport) refresh(ctx context.Context, sent string) (string, error) {
	if cur := t.Session.AccessToken(); cur != "" && cur != sent {
		return cur, nil
	}
	v, err, _ := t.group.Do("refresh", func() (any, error) {
		detached := context.WithoutCancel(ctx)
		tok, err := t.Session.Refresh(detached)
		if err != nil {
			t.Session.Logout(detached)
			return "", err
		}
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func withBearer(req *http.Request, body io.ReadCloser, tok string) *http.Request {
	r := req.Clone(req.Context())
	r.Body = body
	if tok == "" {
		r.Header.Del("Authorization")
	} else {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	return r
}

var errNotReplayable = errors.New("request body cannot be replayed")

func rewind(req *http.Request) (io.ReadCloser, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, nil
	}
	if req.GetBody == nil {
		return nil, errNotReplayable
	}
	return req.GetBody()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
