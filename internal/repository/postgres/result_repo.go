package postgres

import (
	"context"
	"fmt"

	"github.com/nianevitch/uptime-checker/internal/domain/result"
)

var _ result.Repo = (*ResultRepo)(nil)

type ResultRepo struct {
	db *DB
}

func NewResultRepo(db *DB) *ResultRepo { return &ResultRepo{db: db} }

const (
	qResultInsert = `
INSERT INTO check_results (monitor_id, http_code, error_message, response_time_ms, checked_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;`

	qResultsByMonitor = `
SELECT id, monitor_id, http_code, error_message, response_time_ms, checked_at
FROM check_results
WHERE monitor_id = $1
ORDER BY checked_at DESC
LIMIT $2;`
)

func (r *ResultRepo) Insert(ctx context.Context, res *result.Result) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qResultInsert,
		res.MonitorID, res.HTTPCode, res.ErrorMessage, res.ResponseTimeMs, res.CheckedAt,
	).Scan(&res.ID); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepo) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*result.Result, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qResultsByMonitor, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := make([]*result.Result, 0, limit)
	for rows.Next() {
		var res result.Result
		if err := rows.Scan(
			&res.ID, &res.MonitorID, &res.HTTPCode, &res.ErrorMessage, &res.ResponseTimeMs, &res.CheckedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
