package claim

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
)

// Sweeper reclaims monitors a crashed poller left in-progress. TTL must sit
// above the probe's maximum total timeout or a slow-but-alive probe gets
// double-claimed.
var (
	mReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claim_sweeper_reclaimed_total", Help: "Stuck in-progress monitors reclaimed.",
	})
	mSweepErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claim_sweeper_errors_total", Help: "Sweeper tick errors.",
	})
)

type Sweeper struct {
	log      *zap.Logger
	monitors monitor.Repo
	interval time.Duration
	ttl      time.Duration
}

func NewSweeper(log *zap.Logger, monitors monitor.Repo, interval, ttl time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Sweeper{log: log, monitors: monitors, interval: interval, ttl: ttl}
}

func (s *Sweeper) tick(ctx context.Context) {
	n, err := s.monitors.ReclaimStuck(ctx, s.ttl)
	if err != nil {
		mSweepErr.Inc()
		s.log.Warn("sweep tick", zap.Error(err))
		return
	}
	if n > 0 {
		mReclaimed.Add(float64(n))
		s.log.Info("reclaimed stuck monitors", zap.Int64("count", n), zap.Duration("ttl", s.ttl))
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}
