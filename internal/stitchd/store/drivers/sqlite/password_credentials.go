package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
)

type passwordCredentialsRepo struct {
	q querier
}

func (r *passwordCredentialsRepo) CreatePasswordCredential(ctx context.Context, c domain.PasswordCredential) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_credentials (email, identity_id, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		c.Email, c.IdentityID, c.PasswordHash, toMillis(created),
	)
	return mapConstraint(err)
}

func (r *passwordCredentialsRepo) GetPasswordCredential(ctx context.Context, email string) (domain.PasswordCredential, error) {
	var (
		c       domain.PasswordCredential
		created int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT email, identity_id, password_hash, created_at
		FROM password_credentials WHERE email = ?`, email,
	).Scan(&c.Email, &c.IdentityID, &c.PasswordHash, &created)
	if err != nil {
		return domain.PasswordCredential{}, mapNotFound(err)
	}
	c.CreatedAt = fromMillis(created)
	return c, nil
}
