package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
)

var _ monitor.Repo = (*MonitorRepo)(nil)

type MonitorRepo struct {
	db *DB
}

func NewMonitorRepo(db *DB) *MonitorRepo { return &MonitorRepo{db: db} }

const monitorCols = `id, user_id, label, url, frequency_minutes, next_check_at, in_progress, created_at, updated_at`

const (
	qMonitorInsert = `
INSERT INTO monitors (user_id, label, url, frequency_minutes, next_check_at, in_progress)
VALUES ($1, $2, $3, $4, $5, FALSE)
RETURNING ` + monitorCols + `;`

	qMonitorByID = `
SELECT ` + monitorCols + `
FROM monitors
WHERE id = $1;`

	// next_check_at falls back to the supplied value only when unset, so a
	// metadata edit never resets a pending check.
	qMonitorUpdate = `
UPDATE monitors
SET user_id           = $2,
    label             = $3,
    url               = $4,
    frequency_minutes = $5,
    next_check_at     = COALESCE(next_check_at, $6),
    updated_at        = NOW()
WHERE id = $1;`

	qMonitorDelete = `DELETE FROM monitors WHERE id = $1;`

	qMonitorsByOwner = `
SELECT ` + monitorCols + `, '' AS owner_email
FROM monitors
WHERE user_id = $1
ORDER BY created_at DESC;`

	qMonitorsAll = `
SELECT m.id, m.user_id, m.label, m.url, m.frequency_minutes, m.next_check_at,
       m.in_progress, m.created_at, m.updated_at, u.email AS owner_email
FROM monitors m
JOIN users u ON u.id = m.user_id
ORDER BY u.email ASC, m.created_at DESC;`

	// The candidate select and the in_progress flip are one statement, so a
	// batch is claimed atomically. SKIP LOCKED keeps concurrent pollers from
	// serializing on each other's candidates.
	qMonitorClaim = `
WITH cand AS (
    SELECT id
    FROM monitors
    WHERE in_progress = FALSE
      AND (next_check_at IS NULL OR next_check_at <= NOW())
    ORDER BY next_check_at ASC NULLS FIRST
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
UPDATE monitors m
SET in_progress = TRUE, updated_at = NOW()
FROM cand
WHERE m.id = cand.id
RETURNING m.id, m.url;`

	qMonitorScheduleNow = `
UPDATE monitors
SET next_check_at = NOW(), updated_at = NOW()
WHERE id = $1 AND in_progress = FALSE;`

	qMonitorScheduleOwner = `
UPDATE monitors
SET next_check_at = NOW(), updated_at = NOW()
WHERE user_id = $1 AND in_progress = FALSE;`

	qMonitorReschedule = `
UPDATE monitors
SET in_progress   = FALSE,
    next_check_at = NOW() + (frequency_minutes * INTERVAL '1 minute'),
    updated_at    = NOW()
WHERE id = $1;`

	qMonitorReclaim = `
UPDATE monitors
SET in_progress = FALSE, updated_at = NOW()
WHERE in_progress = TRUE AND updated_at < NOW() - $1::interval;`
)

func scanMonitor(row pgx.Row, m *monitor.Monitor) error {
	if err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Label,
		&m.URL,
		&m.FrequencyMinutes,
		&m.NextCheckAt,
		&m.InProgress,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monitor.ErrNotFound
		}
		return fmt.Errorf("scan monitor: %w", err)
	}
	return nil
}

func scanMonitorWithOwner(rows pgx.Rows, m *monitor.Monitor) error {
	if err := rows.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Label,
		&m.URL,
		&m.FrequencyMinutes,
		&m.NextCheckAt,
		&m.InProgress,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.OwnerEmail,
	); err != nil {
		return fmt.Errorf("scan monitor: %w", err)
	}
	return nil
}

func (r *MonitorRepo) Create(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.Pool.QueryRow(ctx, qMonitorInsert,
		m.OwnerID, m.Label, m.URL, m.FrequencyMinutes, m.NextCheckAt)
	if err := scanMonitor(row, m); err != nil {
		if isUniqueViolation(err) {
			return monitor.ErrConflict
		}
		return err
	}
	return nil
}

func (r *MonitorRepo) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m monitor.Monitor
	if err := scanMonitor(r.db.Pool.QueryRow(ctx, qMonitorByID, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepo) Update(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorUpdate,
		m.ID, m.OwnerID, m.Label, m.URL, m.FrequencyMinutes, m.NextCheckAt)
	if err != nil {
		if isUniqueViolation(err) {
			return monitor.ErrConflict
		}
		return fmt.Errorf("update monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return monitor.ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorDelete, id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return monitor.ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	return r.list(ctx, qMonitorsByOwner, ownerID)
}

func (r *MonitorRepo) ListAll(ctx context.Context) ([]*monitor.Monitor, error) {
	return r.list(ctx, qMonitorsAll)
}

func (r *MonitorRepo) list(ctx context.Context, query string, args ...any) ([]*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query monitors: %w", err)
	}
	defer rows.Close()

	var out []*monitor.Monitor
	for rows.Next() {
		var m monitor.Monitor
		if err := scanMonitorWithOwner(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *MonitorRepo) ClaimDue(ctx context.Context, limit int) ([]monitor.Job, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMonitorClaim, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due: %w", err)
	}
	defer rows.Close()

	var jobs []monitor.Job
	for rows.Next() {
		var j monitor.Job
		if err := rows.Scan(&j.ID, &j.URL); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return jobs, nil
}

func (r *MonitorRepo) ScheduleNow(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorScheduleNow, id)
	if err != nil {
		return fmt.Errorf("schedule now: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the monitor is missing or a claim was in flight
	// at update time.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return monitor.ErrInProgress
}

func (r *MonitorRepo) ScheduleAllForOwner(ctx context.Context, ownerID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorScheduleOwner, ownerID)
	if err != nil {
		return 0, fmt.Errorf("schedule owner: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *MonitorRepo) Reschedule(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	cmd, err := eq.Exec(ctx, qMonitorReschedule, id)
	if err != nil {
		return fmt.Errorf("reschedule monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return monitor.ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) ReclaimStuck(ctx context.Context, ttl time.Duration) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	interval := fmt.Sprintf("%f seconds", ttl.Seconds())
	cmd, err := r.db.Pool.Exec(ctx, qMonitorReclaim, interval)
	if err != nil {
		return 0, fmt.Errorf("reclaim stuck: %w", err)
	}
	return cmd.RowsAffected(), nil
}
