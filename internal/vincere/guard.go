package vincere

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/talent-bridge/internal/pkg/logger"
	"golang.org/x/oauth2"
)

// AuthGuard wraps upstream calls with a single refresh-and-retry on
// 401/403. It is implemented once and shared by every caller instead of
// being re-derived per endpoint.
//
// The guard never retries more than once per logical call, so a provider
// that keeps rejecting the refreshed token cannot cause a refresh loop.
type AuthGuard struct {
	store TokenStore
	conf  *oauth2.Config
}

// NewAuthGuard creates a guard that refreshes tokens against the given
// OAuth2 token endpoint and persists rotated credentials in store.
func NewAuthGuard(store TokenStore, clientID, clientSecret, tokenURL string) *AuthGuard {
	return &AuthGuard{
		store: store,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
	}
}

// Do executes perform with the owner's current access token. If the
// response status is 401 or 403, it refreshes the token exactly once and
// invokes perform a second time, returning that result regardless of
// outcome. If the refresh itself fails (no stored refresh token, or the
// token endpoint rejects it), the original 401/403 response is returned
// unmodified.
func (g *AuthGuard) Do(ctx context.Context, ownerKey string, perform func(accessToken string) (*http.Response, error)) (*http.Response, error) {
	creds, err := g.store.Get(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("load credentials for owner %q: %w", ownerKey, err)
	}

	resp, err := perform(creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	fresh, refreshErr := g.refresh(ctx, ownerKey, creds)
	if refreshErr != nil {
		logger.Warn("token refresh failed, returning original auth error",
			"owner", ownerKey,
			"status", fmt.Sprintf("%d", resp.StatusCode),
			"err", refreshErr.Error())
		return resp, nil
	}

	// Discard the rejected response before retrying
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	logger.Info("access token refreshed, retrying request", "owner", ownerKey)
	return perform(fresh.AccessToken)
}

// refresh exchanges the stored refresh token for a new access token and
// persists the result. Providers may rotate the refresh token; the
// rotated value replaces the stored one.
func (g *AuthGuard) refresh(ctx context.Context, ownerKey string, creds Credentials) (Credentials, error) {
	if creds.RefreshToken == "" {
		return creds, ErrNoToken
	}

	tok, err := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	if err != nil {
		return creds, fmt.Errorf("token endpoint: %w", err)
	}

	fresh := Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: creds.RefreshToken,
	}
	if tok.RefreshToken != "" && tok.RefreshToken != creds.RefreshToken {
		fresh.RefreshToken = tok.RefreshToken
	}

	if err := g.store.Put(ctx, ownerKey, fresh); err != nil {
		// The new token still works for this call even if persisting failed.
		logger.Error("failed to persist rotated credentials", "owner", ownerKey, "err", err.Error())
	}
	return fresh, nil
}
