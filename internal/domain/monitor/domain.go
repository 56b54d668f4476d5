package monitor

import (
	"errors"
	"time"
)

// Sentinels returned by any Repo implementation. Callers match with errors.Is.
var (
	ErrNotFound   = errors.New("monitor not found")
	ErrConflict   = errors.New("monitor already exists for owner and url")
	ErrValidation = errors.New("invalid monitor")
	ErrInProgress = errors.New("monitor check in progress")
)

const (
	MinFrequencyMinutes = 1
	MaxFrequencyMinutes = 1440
)

type Monitor struct {
	ID               int64      `json:"id"`
	OwnerID          int64      `json:"owner_id"`
	Label            *string    `json:"label"`
	URL              string     `json:"url"`
	FrequencyMinutes int        `json:"frequency_minutes"`
	NextCheckAt      *time.Time `json:"next_check_at"`
	InProgress       bool       `json:"in_progress"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// OwnerEmail is populated only on the admin listing path.
	OwnerEmail string `json:"owner_email,omitempty"`
}

// Job is the claim handed to a poller: the minimum a probe needs.
type Job struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// ClampFrequency forces a requested frequency into [1, 1440] minutes.
// Out-of-range values are clamped, not rejected.
func ClampFrequency(minutes int) int {
	if minutes < MinFrequencyMinutes {
		return MinFrequencyMinutes
	}
	if minutes > MaxFrequencyMinutes {
		return MaxFrequencyMinutes
	}
	return minutes
}
