package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
)

type usersRepo struct {
	q querier
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var (
		u                domain.User
		data             string
		created, updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, type, data, created_at, updated_at
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Type, &data, &created, &updated)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	if u.Data, err = decodeData(data); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	data, err := encodeData(u.Data)
	if err != nil {
		return err
	}
	now := toMillis(time.Now())
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO users (id, type, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Type, data, now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUserData(ctx context.Context, userID string, data map[string]any) error {
	encoded, err := encodeData(data)
	if err != nil {
		return err
	}
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE users SET data = ?, updated_at = ? WHERE id = ?`,
		encoded, toMillis(time.Now()), userID,
	))
}
