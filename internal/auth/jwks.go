// Package auth verifies bearer tokens against a remote JSON Web Key Set.
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultKeySetTTL is how long a fetched key set is reused
const DefaultKeySetTTL = time.Hour

// KeySetSource returns the key set tokens are verified against
type KeySetSource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
}

// RemoteKeySet fetches a JWKS document over HTTP and caches it
type RemoteKeySet struct {
	url    string
	client *http.Client
	clock  clock.Clock
	ttl    time.Duration

	mu      sync.Mutex
	keys    jwk.Set
	expires time.Time
}

// NewRemoteKeySet creates a cached key set for jwksURL. A nil client gets a 10 second timeout.
func NewRemoteKeySet(jwksURL string, client *http.Client, c clock.Clock) *RemoteKeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if c == nil {
		c = clock.Real()
	}
	return &RemoteKeySet{url: jwksURL, client: client, clock: c, ttl: DefaultKeySetTTL}
}

// KeySet returns the cached keys, refetching once they expire
func (r *RemoteKeySet) KeySet(ctx context.Context) (jwk.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if r.keys != nil && now.Before(r.expires) {
		return r.keys, nil
	}

	keys, err := r.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	r.keys = keys
	r.expires = now.Add(r.ttl)
	return keys, nil
}

// Invalidate drops the cached keys so the next lookup refetches them
func (r *RemoteKeySet) Invalidate() {
	r.mu.Lock()
	r.keys = nil
	r.mu.Unlock()
}

func (r *RemoteKeySet) fetch(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
