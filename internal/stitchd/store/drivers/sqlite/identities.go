package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
)

type identitiesRepo struct {
	q querier
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) error {
	created := i.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO identities (provider_type, id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		i.ProviderType, i.ID, i.UserID, toMillis(created),
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) GetIdentity(ctx context.Context, providerType, id string) (domain.Identity, error) {
	var (
		i       domain.Identity
		created int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT provider_type, id, user_id, created_at
		FROM identities WHERE provider_type = ? AND id = ?`,
		providerType, id,
	).Scan(&i.ProviderType, &i.ID, &i.UserID, &created)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	i.CreatedAt = fromMillis(created)
	return i, nil
}

func (r *identitiesRepo) ListUserIdentities(ctx context.Context, userID string) ([]domain.Identity, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT provider_type, id, user_id, created_at
		FROM identities WHERE user_id = ?
		ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		var (
			i       domain.Identity
			created int64
		)
		if err := rows.Scan(&i.ProviderType, &i.ID, &i.UserID, &created); err != nil {
			return nil, err
		}
		i.CreatedAt = fromMillis(created)
		out = append(out, i)
	}
	return out, rows.Err()
}
