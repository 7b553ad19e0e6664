package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
)

type apiKeysRepo struct {
	q querier
}

const apiKeyColumns = `id, user_id, name, key_hash, disabled, created_at`

func scanAPIKey(row rowScanner) (domain.APIKey, error) {
	var (
		k       domain.APIKey
		created int64
	)
	if err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.Disabled, &created); err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	k.CreatedAt = fromMillis(created)
	return k, nil
}

func (r *apiKeysRepo) CreateAPIKey(ctx context.Context, k domain.APIKey) error {
	created := k.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		k.ID, k.UserID, k.Name, k.KeyHash, k.Disabled, toMillis(created),
	)
	return mapConstraint(err)
}

func (r *apiKeysRepo) GetAPIKey(ctx context.Context, userID, id string) (domain.APIKey, error) {
	return scanAPIKey(r.q.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = ? AND id = ?`, userID, id))
}

func (r *apiKeysRepo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	return scanAPIKey(r.q.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, hash))
}

func (r *apiKeysRepo) ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *apiKeysRepo) SetAPIKeyDisabled(ctx context.Context, userID, id string, disabled bool) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE api_keys SET disabled = ? WHERE user_id = ? AND id = ?`, disabled, userID, id))
}

func (r *apiKeysRepo) DeleteAPIKey(ctx context.Context, userID, id string) error {
	return requireAffected(r.q.ExecContext(ctx,
		`DELETE FROM api_keys WHERE user_id = ? AND id = ?`, userID, id))
}
