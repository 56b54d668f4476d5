package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/services/probe"
)

// Client speaks the poller side of the check protocol: claim a batch of
// jobs, report each outcome.
type Client struct {
	base  string
	httpc *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{Timeout: timeout},
	}
}

type reportPayload struct {
	ID             int64     `json:"id"`
	HTTPCode       *int      `json:"http_code"`
	ResponseTimeMs *float64  `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// FetchJobs claims up to count due monitors. An empty slice means nothing
// is due and is not an error.
func (c *Client) FetchJobs(ctx context.Context, count int) ([]monitor.Job, error) {
	u := fmt.Sprintf("%s/api/v1/checks?count=%d", c.base, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build claim request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claim jobs: unexpected status %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}

	var jobs []monitor.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}

// Report posts one probe outcome back to the reconciler.
func (c *Client) Report(ctx context.Context, id int64, out probe.Outcome) error {
	body, err := json.Marshal(reportPayload{
		ID:             id,
		HTTPCode:       out.HTTPCode,
		ResponseTimeMs: out.ResponseTimeMs,
		Error:          out.Error,
		CheckedAt:      out.CheckedAt,
	})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	u := c.base + "/api/v1/checks"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("report result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("report result: status %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func readBodyPrefix(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
