package postgres

import (
	"context"
	"database/sql"
	"time"

	"docshare/internal/ratelimit"
)

// RateLimitPostgres stores fixed-window counters in rate_limits.
type RateLimitPostgres struct {
	db *sql.DB
}

func NewRateLimitPostgres(db *sql.DB) *RateLimitPostgres {
	return &RateLimitPostgres{db: db}
}

var _ ratelimit.Counter = (*RateLimitPostgres)(nil)

// The upsert takes the row lock, so concurrent hits serialize and each one
// observes its own increment.
const upsertAttempt = `
		INSERT INTO rate_limits (key, window_start, attempts, expires_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (key, window_start)
		DO UPDATE SET attempts = rate_limits.attempts + 1
		RETURNING attempts
	`

func (r *RateLimitPostgres) Hit(ctx context.Context, key string, windowStart time.Time, window time.Duration) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, upsertAttempt, key, windowStart, windowStart.Add(window)).Scan(&n)
	return n, err
}

// Prune deletes windows that expired before cutoff.
func (r *RateLimitPostgres) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
