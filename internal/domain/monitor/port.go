package monitor

import (
	"context"
	"time"
)

type Repo interface {
	// Create inserts a new monitor. NextCheckAt must already be set by the
	// caller (now + frequency). Returns ErrConflict on the owner+url
	// uniqueness constraint.
	Create(ctx context.Context, m *Monitor) error

	GetByID(ctx context.Context, id int64) (*Monitor, error)

	// Update overwrites label, url and frequency. m.NextCheckAt is a
	// fallback: it is applied only when the stored next_check_at is NULL,
	// so an already-scheduled check survives metadata edits.
	Update(ctx context.Context, m *Monitor) error

	// Delete removes the monitor; its results cascade.
	Delete(ctx context.Context, id int64) error

	ListByOwner(ctx context.Context, ownerID int64) ([]*Monitor, error)

	// ListAll returns every monitor joined with its owner's email,
	// ordered by owner email then recency. Admin path only.
	ListAll(ctx context.Context) ([]*Monitor, error)

	// ClaimDue atomically selects up to limit idle, due monitors and flips
	// them in-progress. Concurrent callers receive disjoint sets; rows held
	// by another in-flight claim are skipped, never waited on.
	ClaimDue(ctx context.Context, limit int) ([]Job, error)

	// ScheduleNow makes a single idle monitor due immediately.
	// Returns ErrInProgress if the monitor is currently claimed.
	ScheduleNow(ctx context.Context, id int64) error

	// ScheduleAllForOwner makes every idle monitor of the owner due
	// immediately and reports how many rows it touched. Claimed monitors
	// are left alone.
	ScheduleAllForOwner(ctx context.Context, ownerID int64) (int64, error)

	// Reschedule clears in_progress and advances next_check_at by the
	// monitor's own frequency relative to now. Reconciler path only.
	Reschedule(ctx context.Context, id int64) error

	// ReclaimStuck resets monitors that have been in-progress longer than
	// ttl, so a crashed poller cannot park a monitor forever.
	ReclaimStuck(ctx context.Context, ttl time.Duration) (int64, error)
}
