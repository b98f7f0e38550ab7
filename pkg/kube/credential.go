// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"net/http"
	"sync"
)

// Credential holds a bearer token that can be replaced while clients use it.
type Credential struct {
	mu    sync.RWMutex
	token string
}

func NewCredential(token string) *Credential {
	return &Credential{token: token}
}

func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the token. Requests started afterwards use the new value.
func (c *Credential) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// bearerRoundTripper adds the credential token to every request. The token is read
// when the request is sent, so a reconnecting watch picks up a rotated token.
type bearerRoundTripper struct {
	cred *Credential
	rt   http.RoundTripper
}

func (b *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	token := b.cred.Token()
	if token == "" || req.Header.Get("Authorization") != "" {
		return b.rt.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return b.rt.RoundTrip(req)
}
