// Package probe performs the network reachability check against a single
// URL. Every failure mode is encoded in the returned Outcome; Do never
// returns a Go error.
package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

type Config struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	TotalTimeout    time.Duration `mapstructure:"total_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"`
	VerifyTLS       bool          `mapstructure:"verify_tls"`
}

// Outcome is the structured result of one probe. A nil HTTPCode with a
// non-empty Error is a transport failure; a 4xx/5xx code is a completed
// exchange and classified downstream.
type Outcome struct {
	HTTPCode       *int      `json:"http_code"`
	ResponseTimeMs *float64  `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

type Prober struct {
	client *http.Client
	cfg    Config
	clk    func() time.Time
}

func New(cfg Config) *Prober {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}

	client := &http.Client{Timeout: cfg.TotalTimeout, Transport: transport}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Prober{
		client: client,
		cfg:    cfg,
		clk:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the prober clock. Test hook.
func (p *Prober) WithClock(now func() time.Time) *Prober {
	p.clk = now
	return p
}

func (p *Prober) Do(ctx context.Context, url string) Outcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Error: "invalid url: " + err.Error(), CheckedAt: p.clk()}
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	elapsed := msSince(start)
	if err != nil {
		return Outcome{
			ResponseTimeMs: &elapsed,
			Error:          probeErrorMessage(err),
			CheckedAt:      p.clk(),
		}
	}
	// Drain so the connection can be reused; the body itself is irrelevant.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	elapsed = msSince(start)

	code := resp.StatusCode
	return Outcome{
		HTTPCode:       &code,
		ResponseTimeMs: &elapsed,
		CheckedAt:      p.clk(),
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func probeErrorMessage(err error) string {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "timeout: " + err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}
