package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
)

// CredentialRepository persists [models.Credential] records, one per identity key.
type CredentialRepository struct {
	db querier
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential for key, or [shared.ErrNoCredential].
func (r *CredentialRepository) Get(ctx context.Context, key string) (*models.Credential, error) {
	var c models.Credential
	err := r.db.QueryRowContext(ctx, `
		SELECT identity_key, access_token, refresh_token, token_type, expires_in, issued_at
		FROM credentials
		WHERE identity_key = ?
	`, key).Scan(&c.IdentityKey, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.ExpiresIn, &c.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return &c, nil
}

// Upsert inserts the credential or replaces every token field of the existing row in one statement.
func (r *CredentialRepository) Upsert(ctx context.Context, c *models.Credential) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (identity_key, access_token, refresh_token, token_type, expires_in, issued_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_in = excluded.expires_in,
			issued_at = excluded.issued_at,
			updated_at = excluded.updated_at
	`, c.IdentityKey, c.AccessToken, c.RefreshToken, c.TokenType, c.ExpiresIn, c.IssuedAt.UTC(), now())
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

// Exists reports whether a credential is stored for key.
func (r *CredentialRepository) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM credentials WHERE identity_key = ?)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check credential: %w", err)
	}
	return exists, nil
}
