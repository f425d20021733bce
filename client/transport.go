package client

import (
	"net/http"
	"sync"
)

// Transport is an http.RoundTripper that injects the session bearer
// token into outgoing requests. The credential slot is mutable so a
// login or logout flips every future request without rebuilding the
// http client.
type Transport struct {
	base http.RoundTripper

	mu    sync.RWMutex
	token string
}

func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base}
}

// SetCredential installs the token used on subsequent requests.
func (t *Transport) SetCredential(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

// ClearCredential removes the token. Subsequent requests carry no
// Authorization header at all.
func (t *Transport) ClearCredential() {
	t.SetCredential("")
}

// Credential returns the current token.
func (t *Transport) Credential() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// RoundTrip clones the request before mutating headers, per the
// http.RoundTripper contract.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.Credential()
	if token == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}

var _ http.RoundTripper = (*Transport)(nil)
