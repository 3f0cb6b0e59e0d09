package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshTimeout = 15 * time.Second

// CredentialStore is the durable side of the token manager.
type CredentialStore interface {
	Get(ctx context.Context, key string) (*models.Credential, error)
	Upsert(ctx context.Context, c *models.Credential) error
	Exists(ctx context.Context, key string) (bool, error)
}

// OAuthProvider performs the OAuth2 grants against the provider. [*SpotifyClient] implements it.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// TokenManager keeps host credentials usable.
//
// Refreshes are de-duplicated per identity: while one refresh for a key is in flight every
// other caller for that key waits for it and receives the same result, so a refresh token
// is never spent twice.
type TokenManager struct {
	store   CredentialStore
	oauth   OAuthProvider
	group   singleflight.Group
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
}

// TokenManagerOpts contains configuration options for creating a TokenManager.
type TokenManagerOpts struct {
	Store   CredentialStore
	OAuth   OAuthProvider
	Logger  *log.Logger
	Timeout time.Duration // bound on a single refresh exchange
	Now     func() time.Time
}

// NewTokenManager creates a new [TokenManager] with the provided options
func NewTokenManager(opts TokenManagerOpts) *TokenManager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRefreshTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &TokenManager{
		store:   opts.Store,
		oauth:   opts.OAuth,
		timeout: opts.Timeout,
		logger:  shared.WithLogger(opts.Logger, "component", "tokens"),
		now:     opts.Now,
	}
}

// AuthURL returns the provider authorization URL with state as the correlation value.
func (m *TokenManager) AuthURL(state string) string {
	return m.oauth.AuthURL(state)
}

// Exchange trades an authorization code for a credential and stores it under key.
func (m *TokenManager) Exchange(ctx context.Context, key, code string) (*models.Credential, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: provider returned no refresh token", shared.ErrAuthFailed)
	}

	cred := credentialFromToken(key, token, m.now())
	if err := m.store.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	m.logger.Info("stored credential", "identity", key, "expires_at", cred.ExpiresAt())
	return cred, nil
}

// HasCredential reports whether a credential is stored for key.
func (m *TokenManager) HasCredential(ctx context.Context, key string) (bool, error) {
	return m.store.Exists(ctx, key)
}

// EnsureValidToken returns a credential for key whose access token is not expired.
//
// Returns [shared.ErrNoCredential] when nothing is stored and [shared.ErrRefreshFailed] when an
// expired token could not be refreshed; in that case the stored credential is left untouched.
func (m *TokenManager) EnsureValidToken(ctx context.Context, key string) (*models.Credential, error) {
	cred, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !cred.Expired(m.now()) {
		return cred, nil
	}

	// The flight outlives any single caller's cancellation; followers share its result.
	ch := m.group.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.refresh(rctx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		refreshed := *res.Val.(*models.Credential)
		return &refreshed, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, ctx.Err())
	}
}

// refresh reloads the credential and refreshes it if it is still expired.
//
// A caller that loaded an expired row just before a previous flight stored its result
// finds the fresh row here and does not spend the refresh token again.
func (m *TokenManager) refresh(ctx context.Context, key string) (*models.Credential, error) {
	cred, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !cred.Expired(m.now()) {
		return cred, nil
	}

	m.logger.Debug("refreshing access token", "identity", key, "expired_at", cred.ExpiresAt())

	token, err := m.oauth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			m.logger.Error("refresh rejected", "identity", key, "status", retrieveErr.Response.StatusCode, "body", string(retrieveErr.Body))
		} else {
			m.logger.Error("refresh failed", "identity", key, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshed := credentialFromToken(key, token, m.now())
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}

	if err := m.store.Upsert(ctx, refreshed); err != nil {
		return nil, err
	}

	m.logger.Info("refreshed access token", "identity", key, "expires_at", refreshed.ExpiresAt())
	return refreshed, nil
}
