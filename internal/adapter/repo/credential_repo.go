package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixelforge/internal/domain"
)

// CredentialRepositoryPG stores per-provider bearer tokens.
type CredentialRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository creates a credential store backed by PostgreSQL.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepositoryPG {
	return &CredentialRepositoryPG{pool: pool}
}

// Token returns the stored token for a provider, or empty when none is set.
func (r *CredentialRepositoryPG) Token(ctx context.Context, provider string) (string, error) {
	query := `SELECT token FROM provider_tokens WHERE provider = $1;`
	row := r.pool.QueryRow(ctx, query, strings.TrimSpace(provider))
	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken upserts the token for a provider. An empty token clears it.
func (r *CredentialRepositoryPG) SetToken(ctx context.Context, provider, token string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("repo: provider is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		_, err := r.pool.Exec(ctx, `DELETE FROM provider_tokens WHERE provider = $1;`, provider)
		return err
	}
	query := `
INSERT INTO provider_tokens (provider, token)
VALUES ($1, $2)
ON CONFLICT (provider) DO UPDATE SET token = EXCLUDED.token, updated_at = NOW();
`
	_, err := r.pool.Exec(ctx, query, provider, token)
	return err
}

var _ domain.CredentialRepository = (*CredentialRepositoryPG)(nil)
