package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

// MySQL persists tokens in `refresh_tokens`. Consumed and revoked rows are
// kept with revoked_at set rather than deleted.
type MySQL struct {
	db   *sql.DB
	opts options
}

var _ Registry = (*MySQL)(nil)

func NewMySQL(db *sql.DB, opts ...Option) *MySQL {
	return &MySQL{db: db, opts: buildOptions(opts)}
}

// Put inserts a refresh token hash row, reviving it if the hash already exists.
func (r *MySQL) Put(ctx context.Context, token string, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)
		ON DUPLICATE KEY UPDATE user_id=VALUES(user_id), expires_at=VALUES(expires_at), revoked_at=NULL`,
		userID, utils.HashToken(token), r.opts.expiry())
	if err != nil {
		return fmt.Errorf("registry put: %w", err)
	}
	return nil
}

// Resolve returns userID if a non-revoked, non-expired row exists.
func (r *MySQL) Resolve(ctx context.Context, token string) (uint64, error) {
	var userID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		WHERE token_hash=? AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > ?) LIMIT 1`,
		utils.HashToken(token), r.opts.now().UTC()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("registry resolve: %w", err)
	}
	return userID, nil
}

// Consume marks the row revoked. InnoDB's row lock lets only one concurrent
// UPDATE match; the loser sees zero affected rows.
func (r *MySQL) Consume(ctx context.Context, token string) (uint64, error) {
	h := utils.HashToken(token)
	now := r.opts.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=?
		WHERE token_hash=? AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > ?)`,
		now, h, now)
	if err != nil {
		return 0, fmt.Errorf("registry consume: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("registry consume: %w", err)
	}
	if n != 1 {
		return 0, ErrTokenNotFound
	}

	var userID uint64
	if err := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash=? LIMIT 1", h).Scan(&userID); err != nil {
		return 0, fmt.Errorf("registry consume: %w", err)
	}
	return userID, nil
}

// Revoke marks a token as revoked.
func (r *MySQL) Revoke(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		r.opts.now().UTC(), utils.HashToken(token))
	if err != nil {
		return fmt.Errorf("registry revoke: %w", err)
	}
	return nil
}

// RevokeUser revokes all user's active tokens.
func (r *MySQL) RevokeUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		r.opts.now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("registry revoke user: %w", err)
	}
	return nil
}
