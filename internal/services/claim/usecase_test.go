package claim

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	monitordom "github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/repository/memory"
)

func seedMonitor(t *testing.T, store *memory.Store, ownerID int64, url string, next *time.Time) *monitordom.Monitor {
	t.Helper()
	m := &monitordom.Monitor{
		OwnerID:          ownerID,
		URL:              url,
		FrequencyMinutes: 5,
		NextCheckAt:      next,
	}
	require.NoError(t, store.Create(context.Background(), m))
	return m
}

func pastTime() *time.Time {
	t := time.Now().UTC().Add(-time.Minute)
	return &t
}

func futureTime() *time.Time {
	t := time.Now().UTC().Add(time.Hour)
	return &t
}

func TestClaimDueReturnsOnlyDueMonitors(t *testing.T) {
	store := memory.New()
	uc := New(store)
	ctx := context.Background()

	due := seedMonitor(t, store, 1, "https://due.example.com", pastTime())
	neverChecked := seedMonitor(t, store, 1, "https://new.example.com", nil)
	seedMonitor(t, store, 1, "https://later.example.com", futureTime())

	jobs, err := uc.ClaimDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// nulls first, then oldest due time
	assert.Equal(t, neverChecked.ID, jobs[0].ID)
	assert.Equal(t, due.ID, jobs[1].ID)

	// both are now in progress; a second claim sees nothing
	again, err := uc.ClaimDue(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestClaimDueRespectsLimit(t *testing.T) {
	store := memory.New()
	uc := New(store)

	for i := 0; i < 5; i++ {
		seedMonitor(t, store, 1, fmt.Sprintf("https://m%d.example.com", i), pastTime())
	}

	jobs, err := uc.ClaimDue(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestClaimDueClampsCount(t *testing.T) {
	store := memory.New()
	uc := New(store)
	seedMonitor(t, store, 1, "https://m.example.com", pastTime())

	// non-positive falls back to a single job
	jobs, err := uc.ClaimDue(context.Background(), -1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestConcurrentClaimsAreDisjoint(t *testing.T) {
	store := memory.New()
	uc := New(store)
	ctx := context.Background()

	const monitors = 40
	const claimers = 8
	const perClaim = 10

	for i := 0; i < monitors; i++ {
		seedMonitor(t, store, 1, fmt.Sprintf("https://m%d.example.com", i), pastTime())
	}

	var (
		mu  sync.Mutex
		all []monitordom.Job
		wg  sync.WaitGroup
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobs, err := uc.ClaimDue(ctx, perClaim)
			assert.NoError(t, err)
			mu.Lock()
			all = append(all, jobs...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, len(all))
	for _, j := range all {
		assert.False(t, seen[j.ID], "monitor %d claimed twice", j.ID)
		seen[j.ID] = true
	}
	// capacity (8*10) exceeds supply, so every due monitor is claimed once
	assert.Len(t, all, monitors)
}

func TestScheduleNow(t *testing.T) {
	store := memory.New()
	uc := New(store)
	ctx := context.Background()

	m := seedMonitor(t, store, 1, "https://m.example.com", futureTime())
	require.NoError(t, uc.ScheduleNow(ctx, m.ID))

	jobs, err := uc.ClaimDue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, m.ID, jobs[0].ID)

	// claimed now: another schedule request must fail distinctly
	require.ErrorIs(t, uc.ScheduleNow(ctx, m.ID), monitordom.ErrInProgress)
}

func TestScheduleNowUnknownMonitor(t *testing.T) {
	uc := New(memory.New())
	require.ErrorIs(t, uc.ScheduleNow(context.Background(), 12345), monitordom.ErrNotFound)
}

func TestScheduleAllForOwnerSkipsClaimed(t *testing.T) {
	store := memory.New()
	uc := New(store)
	ctx := context.Background()

	seedMonitor(t, store, 1, "https://a.example.com", futureTime())
	seedMonitor(t, store, 1, "https://b.example.com", futureTime())
	claimed := seedMonitor(t, store, 1, "https://c.example.com", pastTime())
	seedMonitor(t, store, 2, "https://other-owner.example.com", futureTime())

	jobs, err := uc.ClaimDue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, claimed.ID, jobs[0].ID)

	n, err := uc.ScheduleAllForOwner(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "claimed monitor must not be queued twice")
}
