// Package poller is the standalone check agent: on every tick it claims a
// batch of due monitors from the API, probes each URL with bounded
// concurrency and reports the outcomes back.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/domain/result"
	"github.com/nianevitch/uptime-checker/internal/obs/retry"
	"github.com/nianevitch/uptime-checker/internal/services/probe"
)

type Config struct {
	Tick        time.Duration `mapstructure:"tick"`
	BatchSize   int           `mapstructure:"batch_size"`
	Concurrency int           `mapstructure:"concurrency"`
}

var (
	mJobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_jobs_claimed_total", Help: "Jobs claimed from the API.",
	})
	mUp = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_up_total", Help: "Probes classified UP.",
	})
	mDown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_down_total", Help: "Probes classified DOWN.",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poller_errors_total", Help: "Claim or report failures.",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "poller_tick_duration_seconds", Help: "Poller tick duration.",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	log    *zap.Logger
	client *Client
	prober Prober
	cfg    Config
}

// Prober is the probe dependency; satisfied by *probe.Prober.
type Prober interface {
	Do(ctx context.Context, url string) probe.Outcome
}

func NewRunner(log *zap.Logger, client *Client, prober Prober, cfg Config) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Runner{log: log, client: client, prober: prober, cfg: cfg}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	defer func() { mTickDur.Observe(time.Since(start).Seconds()) }()

	jobs, err := r.client.FetchJobs(ctx, r.cfg.BatchSize)
	if err != nil {
		mErrors.Inc()
		r.log.Warn("fetch jobs", zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}
	mJobs.Add(float64(len(jobs)))
	r.log.Debug("claimed batch", zap.Int("jobs", len(jobs)))

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job monitor.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			r.runJob(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) runJob(ctx context.Context, job monitor.Job) {
	out := r.prober.Do(ctx, job.URL)

	if result.Classify(out.HTTPCode, out.Error) == result.StatusUp {
		mUp.Inc()
	} else {
		mDown.Inc()
	}
	r.log.Debug("probe complete",
		zap.Int64("monitor_id", job.ID),
		zap.String("url", job.URL),
		zap.Any("http_code", out.HTTPCode),
		zap.String("probe_error", out.Error),
	)

	// An unreported outcome strands the monitor in-progress until the
	// sweeper catches it, so the post is retried.
	err := retry.Do(ctx, func() error {
		return r.client.Report(ctx, job.ID, out)
	}, retry.ReportPolicy(r.log))
	if err != nil {
		mErrors.Inc()
		r.log.Error("report result",
			zap.Int64("monitor_id", job.ID),
			zap.Error(err),
		)
	}
}
