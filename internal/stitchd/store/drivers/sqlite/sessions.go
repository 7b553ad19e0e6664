package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/stitch/internal/stitchd/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, device_id, token_hash, expires_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s                domain.Session
		expires, created int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.TokenHash, &expires, &created); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.ExpiresAt = fromMillis(expires)
	s.CreatedAt = fromMillis(created)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.DeviceID, s.TokenHash, toMillis(s.ExpiresAt), toMillis(created),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByHash(ctx context.Context, hash string) (domain.Session, error) {
	return scanSession(r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, hash))
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	return requireAffected(r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
