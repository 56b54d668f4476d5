// Package memory is an in-memory implementation of the monitor, result and
// user ports. It backs unit tests and keeps the same sentinel error contract
// as the postgres repos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/domain/result"
	"github.com/nianevitch/uptime-checker/internal/domain/user"
)

type Store struct {
	mu sync.Mutex

	nextMonitorID int64
	nextResultID  int64
	nextUserID    int64

	monitors map[int64]*monitor.Monitor
	results  []*result.Result
	users    map[int64]*user.User

	now func() time.Time
}

func New() *Store {
	return &Store{
		nextMonitorID: 1,
		nextResultID:  1,
		nextUserID:    1,
		monitors:      make(map[int64]*monitor.Monitor),
		results:       make([]*result.Result, 0, 64),
		users:         make(map[int64]*user.User),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the store clock. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var (
	_ monitor.Repo = (*Store)(nil)
	_ result.Repo  = (*Store)(nil)
)

// NopTransactor satisfies the reconciler's transactor dependency. The memory
// store applies every mutation under one mutex, so there is nothing to scope.
type NopTransactor struct{}

func (NopTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Create(ctx context.Context, m *monitor.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range s.monitors {
		if ex.OwnerID == m.OwnerID && ex.URL == m.URL {
			return monitor.ErrConflict
		}
	}

	m.ID = s.nextMonitorID
	s.nextMonitorID++
	now := s.now()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.InProgress = false

	cp := *m
	s.monitors[m.ID] = &cp
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.monitors[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) Update(ctx context.Context, m *monitor.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.monitors[m.ID]
	if !ok {
		return monitor.ErrNotFound
	}
	for _, other := range s.monitors {
		if other.ID != m.ID && other.OwnerID == m.OwnerID && other.URL == m.URL {
			return monitor.ErrConflict
		}
	}

	ex.OwnerID = m.OwnerID
	ex.Label = m.Label
	ex.URL = m.URL
	ex.FrequencyMinutes = m.FrequencyMinutes
	if ex.NextCheckAt == nil {
		ex.NextCheckAt = m.NextCheckAt
	}
	ex.UpdatedAt = s.now()
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitors[id]; !ok {
		return monitor.ErrNotFound
	}
	delete(s.monitors, id)

	kept := s.results[:0]
	for _, r := range s.results {
		if r.MonitorID != id {
			kept = append(kept, r)
		}
	}
	s.results = kept
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*monitor.Monitor
	for _, m := range s.monitors {
		if m.OwnerID == ownerID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*monitor.Monitor
	for _, m := range s.monitors {
		cp := *m
		if u, ok := s.users[m.OwnerID]; ok {
			cp.OwnerEmail = u.Email
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerEmail != out[j].OwnerEmail {
			return out[i].OwnerEmail < out[j].OwnerEmail
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ClaimDue(ctx context.Context, limit int) ([]monitor.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []*monitor.Monitor
	for _, m := range s.monitors {
		if m.InProgress {
			continue
		}
		if m.NextCheckAt == nil || !m.NextCheckAt.After(now) {
			due = append(due, m)
		}
	}
	// nulls first, then oldest due time
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].NextCheckAt, due[j].NextCheckAt
		switch {
		case a == nil && b == nil:
			return due[i].ID < due[j].ID
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	if limit < len(due) {
		due = due[:limit]
	}

	jobs := make([]monitor.Job, 0, len(due))
	for _, m := range due {
		m.InProgress = true
		m.UpdatedAt = now
		jobs = append(jobs, monitor.Job{ID: m.ID, URL: m.URL})
	}
	return jobs, nil
}

func (s *Store) ScheduleNow(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.monitors[id]
	if !ok {
		return monitor.ErrNotFound
	}
	if m.InProgress {
		return monitor.ErrInProgress
	}
	now := s.now()
	m.NextCheckAt = &now
	m.UpdatedAt = now
	return nil
}

func (s *Store) ScheduleAllForOwner(ctx context.Context, ownerID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for _, m := range s.monitors {
		if m.OwnerID != ownerID || m.InProgress {
			continue
		}
		t := now
		m.NextCheckAt = &t
		m.UpdatedAt = now
		n++
	}
	return n, nil
}

func (s *Store) Reschedule(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.monitors[id]
	if !ok {
		return monitor.ErrNotFound
	}
	now := s.now()
	next := now.Add(time.Duration(m.FrequencyMinutes) * time.Minute)
	m.NextCheckAt = &next
	m.InProgress = false
	m.UpdatedAt = now
	return nil
}

func (s *Store) ReclaimStuck(ctx context.Context, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for _, m := range s.monitors {
		if m.InProgress && now.Sub(m.UpdatedAt) > ttl {
			m.InProgress = false
			m.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) Insert(ctx context.Context, r *result.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitors[r.MonitorID]; !ok {
		return monitor.ErrNotFound
	}
	r.ID = s.nextResultID
	s.nextResultID++
	if r.CheckedAt.IsZero() {
		r.CheckedAt = s.now()
	}
	cp := *r
	s.results = append(s.results, &cp)
	return nil
}

func (s *Store) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*result.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	var out []*result.Result
	for _, r := range s.results {
		if r.MonitorID == monitorID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.After(out[j].CheckedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SeedUser registers an owner so the admin listing can resolve emails.
func (s *Store) SeedUser(u *user.User) error {
	return s.Users().Create(context.Background(), u)
}

// Users exposes the store as a user.Repo. The monitor methods already own
// the Create/GetByID names on Store itself, hence the view type.
func (s *Store) Users() *UserView { return &UserView{s: s} }

type UserView struct {
	s *Store
}

var _ user.Repo = (*UserView)(nil)

func (v *UserView) Create(ctx context.Context, u *user.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, ex := range v.s.users {
		if strings.EqualFold(ex.Email, u.Email) {
			return user.ErrConflict
		}
	}
	u.ID = v.s.nextUserID
	v.s.nextUserID++
	now := v.s.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	v.s.users[u.ID] = &cp
	return nil
}

func (v *UserView) GetByID(ctx context.Context, id int64) (*user.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	u, ok := v.s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (v *UserView) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, u := range v.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (v *UserView) List(ctx context.Context) ([]*user.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	out := make([]*user.User, 0, len(v.s.users))
	for _, u := range v.s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
