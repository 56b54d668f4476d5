// Package reconcile ingests probe outcomes: it stores a result row, advances
// the monitor's schedule and clears the claim, all inside one transaction so
// a crash cannot strand the monitor in-progress with the result persisted.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/domain/result"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Outcome is the reported probe result for one monitor.
type Outcome struct {
	HTTPCode       *int
	ResponseTimeMs *float64
	Error          string
	CheckedAt      time.Time
}

// View is the reconciled monitor state returned for immediate display.
type View struct {
	ID             int64         `json:"id"`
	URL            string        `json:"url"`
	Status         result.Status `json:"status"`
	HTTPCode       *int          `json:"http_code"`
	ResponseTimeMs *float64      `json:"response_time_ms"`
	CheckedAt      time.Time     `json:"checked_at"`
	Error          *string       `json:"error"`
	NextCheckAt    *time.Time    `json:"next_check_at"`
}

type Usecase struct {
	monitors monitor.Repo
	results  result.Repo
	tx       Transactor
	clk      func() time.Time
}

func New(monitors monitor.Repo, results result.Repo, tx Transactor, clk func() time.Time) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{monitors: monitors, results: results, tx: tx, clk: clk}
}

// Record stores the outcome for monitorID, reschedules the monitor by its
// own frequency and clears in_progress. Unknown ids fail with
// monitor.ErrNotFound before anything is written.
func (u *Usecase) Record(ctx context.Context, monitorID int64, out Outcome) (*View, error) {
	tr := otel.Tracer("reconcile.uc")
	ctx, span := tr.Start(ctx, "reconcile.record",
		trace.WithAttributes(attribute.Int64("monitor.id", monitorID)),
	)
	defer span.End()

	m, err := u.monitors.GetByID(ctx, monitorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	checkedAt := out.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = u.clk()
	}

	res := &result.Result{
		MonitorID:      m.ID,
		HTTPCode:       out.HTTPCode,
		ErrorMessage:   normalizeError(out.Error),
		ResponseTimeMs: out.ResponseTimeMs,
		CheckedAt:      checkedAt,
	}

	if err := u.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.results.Insert(txCtx, res); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		if err := u.monitors.Reschedule(txCtx, m.ID); err != nil {
			return fmt.Errorf("reschedule monitor: %w", err)
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		return nil, err
	}

	updated, err := u.monitors.GetByID(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("monitor.status", string(res.Status())))
	return &View{
		ID:             updated.ID,
		URL:            updated.URL,
		Status:         res.Status(),
		HTTPCode:       res.HTTPCode,
		ResponseTimeMs: res.ResponseTimeMs,
		CheckedAt:      res.CheckedAt,
		Error:          res.ErrorMessage,
		NextCheckAt:    updated.NextCheckAt,
	}, nil
}

func normalizeError(msg string) *string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return nil
	}
	return &msg
}
