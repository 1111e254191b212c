package authsdk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/tally/pkg/jwtx"
)

// RemoteVerifier checks access and sync tokens against the auth service's
// published JWKS without calling back for each token. Keys are fetched on
// first use and again when a token names a kid the set does not have.
type RemoteVerifier struct {
	Client *SDKClient
	Expect jwtx.Expectations

	// Now defaults to time.Now.
	Now func() time.Time

	// MinRefreshInterval bounds how often an unknown kid can trigger a
	// JWKS fetch.
	MinRefreshInterval time.Duration

	keys *jwtx.KeySet

	mu          sync.Mutex
	lastRefresh time.Time
}

func NewRemoteVerifier(client *SDKClient, expect jwtx.Expectations) *RemoteVerifier {
	return &RemoteVerifier{
		Client:             client,
		Expect:             expect,
		Now:                time.Now,
		MinRefreshInterval: time.Minute,
		keys:               jwtx.NewKeySet(),
	}
}

// Refresh replaces the key set with the service's current JWKS.
func (v *RemoteVerifier) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refreshLocked(ctx)
}

func (v *RemoteVerifier) refreshLocked(ctx context.Context) error {
	jwks, err := v.Client.GetJWKS(ctx)
	if err != nil {
		return err
	}
	if err := v.keys.ResetFromJWKS(jwtx.JWKS(*jwks)); err != nil {
		return err
	}
	v.lastRefresh = v.Now()
	return nil
}

// refreshIfStale fetches keys unless another caller did so recently.
func (v *RemoteVerifier) refreshIfStale(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keys.IsReady() && v.Now().Sub(v.lastRefresh) < v.MinRefreshInterval {
		return nil
	}
	return v.refreshLocked(ctx)
}

// Verify returns the claims of a valid token. Rejections come back as the
// jwtx reason sentinels; transport failures as ordinary errors.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*jwtx.Claims, error) {
	if !v.keys.IsReady() {
		if err := v.refreshIfStale(ctx); err != nil {
			return nil, err
		}
	}

	claims, err := v.keys.Verify(token, v.Expect, v.Now())
	if !errors.Is(err, jwtx.ErrUnknownKID) {
		return claims, err
	}

	if err := v.refreshIfStale(ctx); err != nil {
		return nil, err
	}
	return v.keys.Verify(token, v.Expect, v.Now())
}
