package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/repositories"
	"github.com/desertthunder/roomcast/internal/shared"
	tu "github.com/desertthunder/roomcast/internal/testing"
)

type tokenFixture struct {
	fake    *tu.FakeSpotify
	store   *repositories.CredentialRepository
	manager *TokenManager
	now     time.Time
}

func setupTokenManager(t *testing.T) *tokenFixture {
	t.Helper()

	db := tu.SetupTestDB(t)
	fake := tu.NewFakeSpotify(t)
	store := repositories.NewCredentialRepository(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	manager := NewTokenManager(TokenManagerOpts{
		Store: store,
		OAuth: newTestClient(t, fake),
		Now:   func() time.Time { return now },
	})

	return &tokenFixture{fake: fake, store: store, manager: manager, now: now}
}

func (f *tokenFixture) seed(t *testing.T, key string, issuedAt time.Time) {
	t.Helper()

	err := f.store.Upsert(context.Background(), &models.Credential{
		IdentityKey:  key,
		AccessToken:  "stale-access",
		RefreshToken: "refresh-orig",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		IssuedAt:     issuedAt,
	})
	if err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}
}

func TestTokenManager(t *testing.T) {
	ctx := context.Background()

	t.Run("EnsureValidToken", func(t *testing.T) {
		t.Run("No Credential", func(t *testing.T) {
			f := setupTokenManager(t)

			_, err := f.manager.EnsureValidToken(ctx, "nobody")
			if !errors.Is(err, shared.ErrNoCredential) {
				t.Errorf("expected ErrNoCredential, got %v", err)
			}
			if got := f.fake.Refreshes.Load(); got != 0 {
				t.Errorf("expected no refresh, got %d", got)
			}
		})

		t.Run("Valid Token Not Refreshed", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "host", f.now.Add(-10*time.Minute))

			cred, err := f.manager.EnsureValidToken(ctx, "host")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.AccessToken != "stale-access" {
				t.Errorf("expected stored token, got %s", cred.AccessToken)
			}
			if got := f.fake.Refreshes.Load(); got != 0 {
				t.Errorf("expected no refresh, got %d", got)
			}
		})

		t.Run("Expired Token Refreshed", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "host", f.now.Add(-2*time.Hour))

			cred, err := f.manager.EnsureValidToken(ctx, "host")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.AccessToken != "refreshed-1" {
				t.Errorf("expected refreshed token, got %s", cred.AccessToken)
			}
			if cred.RefreshToken != "refresh-orig" {
				t.Errorf("expected refresh token to be preserved, got %s", cred.RefreshToken)
			}

			stored, err := f.store.Get(ctx, "host")
			if err != nil {
				t.Fatalf("failed to load stored credential: %v", err)
			}
			if stored.AccessToken != "refreshed-1" {
				t.Errorf("expected stored token to be replaced, got %s", stored.AccessToken)
			}
			if !stored.IssuedAt.Equal(f.now) {
				t.Errorf("expected issued_at %v, got %v", f.now, stored.IssuedAt)
			}
		})

		t.Run("Expiry Boundary", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "host", f.now.Add(-time.Hour))

			if _, err := f.manager.EnsureValidToken(ctx, "host"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := f.fake.Refreshes.Load(); got != 1 {
				t.Errorf("expected token expiring now to be refreshed, got %d refreshes", got)
			}
		})

		t.Run("Concurrent Callers Share One Refresh", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "host", f.now.Add(-2*time.Hour))
			f.fake.SlowRefresh(50 * time.Millisecond)

			const callers = 20
			var wg sync.WaitGroup
			tokens := make([]string, callers)
			errs := make([]error, callers)

			for i := range callers {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					cred, err := f.manager.EnsureValidToken(ctx, "host")
					errs[i] = err
					if cred != nil {
						tokens[i] = cred.AccessToken
					}
				}(i)
			}
			wg.Wait()

			for i := range callers {
				if errs[i] != nil {
					t.Fatalf("caller %d: unexpected error %v", i, errs[i])
				}
				if tokens[i] != "refreshed-1" {
					t.Errorf("caller %d: expected refreshed-1, got %s", i, tokens[i])
				}
			}
			if got := f.fake.Refreshes.Load(); got != 1 {
				t.Errorf("expected exactly one refresh, got %d", got)
			}
		})

		t.Run("Refresh Failure Leaves Row Untouched", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "host", f.now.Add(-2*time.Hour))
			f.fake.FailRefresh(400)

			_, err := f.manager.EnsureValidToken(ctx, "host")
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Fatalf("expected ErrRefreshFailed, got %v", err)
			}

			stored, err := f.store.Get(ctx, "host")
			if err != nil {
				t.Fatalf("failed to load stored credential: %v", err)
			}
			if stored.AccessToken != "stale-access" || stored.RefreshToken != "refresh-orig" {
				t.Errorf("expected stored credential unchanged, got %+v", stored)
			}
		})

		t.Run("Independent Identities", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "a", f.now.Add(-2*time.Hour))
			f.seed(t, "b", f.now.Add(-2*time.Hour))

			var wg sync.WaitGroup
			for _, key := range []string{"a", "b"} {
				wg.Add(1)
				go func(key string) {
					defer wg.Done()
					if _, err := f.manager.EnsureValidToken(ctx, key); err != nil {
						t.Errorf("%s: unexpected error %v", key, err)
					}
				}(key)
			}
			wg.Wait()

			if got := f.fake.Refreshes.Load(); got != 2 {
				t.Errorf("expected one refresh per identity, got %d", got)
			}
		})
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Stores Credential", func(t *testing.T) {
			f := setupTokenManager(t)

			cred, err := f.manager.Exchange(ctx, "host", "good")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cred.AccessToken != "access-1" || cred.ExpiresIn != 3600 {
				t.Errorf("unexpected credential %+v", cred)
			}

			ok, err := f.manager.HasCredential(ctx, "host")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !ok {
				t.Error("expected credential to be stored")
			}
		})

		t.Run("Replaces Existing", func(t *testing.T) {
			f := setupTokenManager(t)
			f.seed(t, "host", f.now.Add(-2*time.Hour))

			if _, err := f.manager.Exchange(ctx, "host", "good"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			stored, err := f.store.Get(ctx, "host")
			if err != nil {
				t.Fatalf("failed to load stored credential: %v", err)
			}
			if stored.RefreshToken != "refresh-1" {
				t.Errorf("expected new refresh token, got %s", stored.RefreshToken)
			}
		})

		t.Run("Rejected Code", func(t *testing.T) {
			f := setupTokenManager(t)

			_, err := f.manager.Exchange(ctx, "host", "bad")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}

			ok, _ := f.manager.HasCredential(ctx, "host")
			if ok {
				t.Error("expected nothing stored after rejected code")
			}
		})
	})
}
