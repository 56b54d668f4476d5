package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	monitordom "github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/repository/memory"
)

func newUC(t *testing.T) (*Usecase, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, store, nil), store
}

func TestCreateValidation(t *testing.T) {
	uc, _ := newUC(t)
	ctx := context.Background()

	cases := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no scheme", "not-a-url"},
		{"bad scheme", "ftp://example.com"},
		{"no host", "https://"},
		{"too long", "https://example.com/" + string(make([]byte, 300))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Create(ctx, 1, tc.url, nil, 5)
			require.ErrorIs(t, err, monitordom.ErrValidation)
		})
	}

	// nothing persisted after the failures above
	list, err := uc.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateClampsFrequency(t *testing.T) {
	uc, _ := newUC(t)
	ctx := context.Background()

	m, err := uc.Create(ctx, 1, "https://example.com", nil, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1440, m.FrequencyMinutes)

	m2, err := uc.Create(ctx, 1, "https://example.org", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, m2.FrequencyMinutes)
}

func TestCreateSchedulesFirstCheck(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := memory.New().WithClock(func() time.Time { return now })
	uc := New(store, store, func() time.Time { return now })

	m, err := uc.Create(context.Background(), 1, "https://example.com", nil, 5)
	require.NoError(t, err)
	require.NotNil(t, m.NextCheckAt)
	assert.Equal(t, now.Add(5*time.Minute), *m.NextCheckAt)
	assert.False(t, m.InProgress)
}

func TestCreateConflictOnDuplicate(t *testing.T) {
	uc, _ := newUC(t)
	ctx := context.Background()

	_, err := uc.Create(ctx, 1, "https://example.com", nil, 5)
	require.NoError(t, err)

	_, err = uc.Create(ctx, 1, "https://example.com", nil, 10)
	require.ErrorIs(t, err, monitordom.ErrConflict)

	// same url for a different owner is fine
	_, err = uc.Create(ctx, 2, "https://example.com", nil, 5)
	require.NoError(t, err)
}

func TestUpdatePreservesPendingSchedule(t *testing.T) {
	uc, _ := newUC(t)
	ctx := context.Background()

	m, err := uc.Create(ctx, 1, "https://example.com", nil, 5)
	require.NoError(t, err)
	scheduled := *m.NextCheckAt

	label := "renamed"
	updated, err := uc.Update(ctx, m.ID, 1, "https://example.com/health", &label, 30)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/health", updated.URL)
	assert.Equal(t, 30, updated.FrequencyMinutes)
	require.NotNil(t, updated.NextCheckAt)
	assert.Equal(t, scheduled, *updated.NextCheckAt, "edit must not reset a pending check")
}

func TestUpdateNotFound(t *testing.T) {
	uc, _ := newUC(t)
	_, err := uc.Update(context.Background(), 999, 1, "https://example.com", nil, 5)
	require.ErrorIs(t, err, monitordom.ErrNotFound)
}

func TestUpdateNormalizesLabel(t *testing.T) {
	uc, _ := newUC(t)
	ctx := context.Background()

	blank := "   "
	m, err := uc.Create(ctx, 1, "https://example.com", &blank, 5)
	require.NoError(t, err)
	assert.Nil(t, m.Label)
}

func TestDelete(t *testing.T) {
	uc, store := newUC(t)
	ctx := context.Background()

	m, err := uc.Create(ctx, 1, "https://example.com", nil, 5)
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, m.ID))
	require.ErrorIs(t, uc.Delete(ctx, m.ID), monitordom.ErrNotFound)

	// results are gone with the monitor
	results, err := store.ListByMonitor(ctx, m.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListAdminSeesAll(t *testing.T) {
	uc, _ := newUC(t)
	ctx := context.Background()

	_, err := uc.Create(ctx, 1, "https://one.example.com", nil, 5)
	require.NoError(t, err)
	_, err = uc.Create(ctx, 2, "https://two.example.com", nil, 5)
	require.NoError(t, err)

	own, err := uc.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := uc.List(ctx, 0, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecentResultsUnknownMonitor(t *testing.T) {
	uc, _ := newUC(t)
	_, err := uc.RecentResults(context.Background(), 42, 10)
	require.ErrorIs(t, err, monitordom.ErrNotFound)
}
