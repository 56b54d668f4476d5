// Package monitor is the monitor store usecase: CRUD with validation on top
// of the repository port. The claim and reconcile paths live in their own
// services; nothing here ever touches in_progress.
package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/domain/result"
)

const maxURLLen = 255

type Usecase struct {
	monitors monitor.Repo
	results  result.Repo
	clk      func() time.Time
}

func New(monitors monitor.Repo, results result.Repo, clk func() time.Time) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{monitors: monitors, results: results, clk: clk}
}

func (u *Usecase) Create(ctx context.Context, ownerID int64, rawURL string, label *string, frequencyMinutes int) (*monitor.Monitor, error) {
	cleanURL, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := u.clk()
	next := now.Add(time.Duration(monitor.ClampFrequency(frequencyMinutes)) * time.Minute)
	m := &monitor.Monitor{
		OwnerID:          ownerID,
		Label:            normalizeLabel(label),
		URL:              cleanURL,
		FrequencyMinutes: monitor.ClampFrequency(frequencyMinutes),
		NextCheckAt:      &next,
	}
	if err := u.monitors.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (u *Usecase) Update(ctx context.Context, id, ownerID int64, rawURL string, label *string, frequencyMinutes int) (*monitor.Monitor, error) {
	cleanURL, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	freq := monitor.ClampFrequency(frequencyMinutes)
	next := u.clk().Add(time.Duration(freq) * time.Minute)
	m := &monitor.Monitor{
		ID:               id,
		OwnerID:          ownerID,
		Label:            normalizeLabel(label),
		URL:              cleanURL,
		FrequencyMinutes: freq,
		// Applied only when the stored next_check_at is NULL.
		NextCheckAt: &next,
	}
	if err := u.monitors.Update(ctx, m); err != nil {
		return nil, err
	}
	return u.monitors.GetByID(ctx, id)
}

func (u *Usecase) Delete(ctx context.Context, id int64) error {
	return u.monitors.Delete(ctx, id)
}

func (u *Usecase) Get(ctx context.Context, id int64) (*monitor.Monitor, error) {
	return u.monitors.GetByID(ctx, id)
}

// List returns the owner's monitors, or every monitor (with owner identity)
// for admins. Ownership and role are resolved by the caller upstream.
func (u *Usecase) List(ctx context.Context, ownerID int64, isAdmin bool) ([]*monitor.Monitor, error) {
	if isAdmin {
		return u.monitors.ListAll(ctx)
	}
	return u.monitors.ListByOwner(ctx, ownerID)
}

func (u *Usecase) RecentResults(ctx context.Context, monitorID int64, limit int) ([]*result.Result, error) {
	if _, err := u.monitors.GetByID(ctx, monitorID); err != nil {
		return nil, err
	}
	return u.results.ListByMonitor(ctx, monitorID, limit)
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", monitor.ErrValidation)
	}
	if len(raw) > maxURLLen {
		return "", fmt.Errorf("%w: url is too long (max %d characters)", monitor.ErrValidation, maxURLLen)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed url", monitor.ErrValidation)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: url must be absolute (including https://)", monitor.ErrValidation)
	}
	return raw, nil
}

func normalizeLabel(label *string) *string {
	if label == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*label)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
