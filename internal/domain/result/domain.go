package result

import "time"

type Result struct {
	ID             int64     `json:"id"`
	MonitorID      int64     `json:"monitor_id"`
	HTTPCode       *int      `json:"http_code"`
	ErrorMessage   *string   `json:"error_message"`
	ResponseTimeMs *float64  `json:"response_time_ms"`
	CheckedAt      time.Time `json:"checked_at"`
}

type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// Classify maps a stored outcome onto UP/DOWN. A transport error or a
// missing status code is DOWN; otherwise only [200,400) counts as up,
// redirects included.
func Classify(httpCode *int, errMsg string) Status {
	if errMsg != "" || httpCode == nil {
		return StatusDown
	}
	if *httpCode >= 200 && *httpCode < 400 {
		return StatusUp
	}
	return StatusDown
}

func (r *Result) Status() Status {
	msg := ""
	if r.ErrorMessage != nil {
		msg = *r.ErrorMessage
	}
	return Classify(r.HTTPCode, msg)
}
