// Package claim is the claim engine: it hands due monitors to pollers with
// an at-most-one-active-claim guarantee and owns the schedule-now paths.
package claim

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
)

const (
	defaultBatch = 1
	maxBatch     = 100
)

type Usecase struct {
	monitors monitor.Repo
}

func New(monitors monitor.Repo) *Usecase {
	return &Usecase{monitors: monitors}
}

// ClaimDue marks up to maxCount due, idle monitors in-progress and returns
// them as jobs. An empty batch is success, not an error. Concurrent calls
// receive disjoint sets; the selection never blocks on another claimer.
func (u *Usecase) ClaimDue(ctx context.Context, maxCount int) ([]monitor.Job, error) {
	if maxCount <= 0 {
		maxCount = defaultBatch
	}
	if maxCount > maxBatch {
		maxCount = maxBatch
	}

	tr := otel.Tracer("claim.uc")
	ctx, span := tr.Start(ctx, "claim.due",
		trace.WithAttributes(attribute.Int("batch.limit", maxCount)),
	)
	defer span.End()

	jobs, err := u.monitors.ClaimDue(ctx, maxCount)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("claim due: %w", err)
	}
	span.SetAttributes(attribute.Int("batch.claimed", len(jobs)))
	return jobs, nil
}

// ScheduleNow makes one idle monitor due immediately. A monitor with a probe
// in flight reports monitor.ErrInProgress instead of being queued twice.
func (u *Usecase) ScheduleNow(ctx context.Context, id int64) error {
	return u.monitors.ScheduleNow(ctx, id)
}

// ScheduleAllForOwner makes every idle monitor of one owner due immediately
// and reports how many were rescheduled.
func (u *Usecase) ScheduleAllForOwner(ctx context.Context, ownerID int64) (int64, error) {
	return u.monitors.ScheduleAllForOwner(ctx, ownerID)
}
