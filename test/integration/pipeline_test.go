//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type jobDTO struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type viewDTO struct {
	ID          int64      `json:"id"`
	Status      string     `json:"status"`
	NextCheckAt *time.Time `json:"next_check_at"`
}

// The full claim/report cycle: a due monitor is handed out exactly once,
// the reported outcome lands as a result row and the monitor is
// rescheduled one interval out with the claim cleared.
func TestClaimReportCycle(t *testing.T) {
	c := LoadCfg()
	db := DBOpen(t, c.DBDSN)
	defer db.Close()

	ownerID := RandID()
	monitorID := RandID()
	SeedUser(t, db, ownerID, fmt.Sprintf("it-%d@example.com", ownerID))
	SeedMonitor(t, db, monitorID, ownerID, fmt.Sprintf("https://it-%d.example.com", monitorID), 5)
	defer CleanupMonitor(t, db, monitorID)

	// claim until our monitor shows up; other seeded rows may be due too
	claimed := claimUntilFound(t, c, monitorID, 30*time.Second)
	if claimed.URL == "" {
		t.Fatalf("[pipeline] monitor %d never claimed", monitorID)
	}

	st := GetMonitorState(t, db, monitorID)
	if !st.InProgress {
		t.Fatalf("[pipeline] claimed monitor not marked in_progress")
	}

	// a second claim must not hand the same monitor out again
	for _, j := range claimBatch(t, c, 100) {
		if j.ID == monitorID {
			t.Fatalf("[pipeline] monitor %d claimed twice", monitorID)
		}
	}

	// report UP
	payload := fmt.Sprintf(
		`{"id":%d,"http_code":200,"response_time_ms":12.5,"checked_at":%q}`,
		monitorID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	body := HTTPDoJSON(t, http.MethodPost, APIBaseURL(c, c.ChecksPath), []byte(payload), http.StatusOK)

	var view viewDTO
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("[pipeline] decode view: %v", err)
	}
	if view.Status != "UP" {
		t.Fatalf("[pipeline] status=%q want UP", view.Status)
	}

	st = GetMonitorState(t, db, monitorID)
	if st.InProgress {
		t.Fatalf("[pipeline] in_progress not cleared after report")
	}
	if !st.NextCheckAt.Valid {
		t.Fatalf("[pipeline] next_check_at not set after report")
	}
	until := time.Until(st.NextCheckAt.Time)
	if until < 4*time.Minute || until > 6*time.Minute {
		t.Fatalf("[pipeline] next_check_at %v from now, want ~5m", until)
	}

	if n := CountResults(t, db, monitorID); n != 1 {
		t.Fatalf("[pipeline] results=%d want 1", n)
	}
	if code := LatestResultCode(t, db, monitorID); !code.Valid || code.Int64 != 200 {
		t.Fatalf("[pipeline] latest http_code=%v want 200", code)
	}
}

// A DOWN outcome (transport error, no status code) is stored with a null
// http_code and still reschedules the monitor.
func TestReportTransportFailure(t *testing.T) {
	c := LoadCfg()
	db := DBOpen(t, c.DBDSN)
	defer db.Close()

	ownerID := RandID()
	monitorID := RandID()
	SeedUser(t, db, ownerID, fmt.Sprintf("it-%d@example.com", ownerID))
	SeedMonitor(t, db, monitorID, ownerID, fmt.Sprintf("https://it-%d.example.com", monitorID), 5)
	defer CleanupMonitor(t, db, monitorID)

	payload := fmt.Sprintf(
		`{"id":%d,"error":"dial tcp: connection refused","checked_at":%q}`,
		monitorID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	body := HTTPDoJSON(t, http.MethodPost, APIBaseURL(c, c.ChecksPath), []byte(payload), http.StatusOK)

	var view viewDTO
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("[pipeline] decode view: %v", err)
	}
	if view.Status != "DOWN" {
		t.Fatalf("[pipeline] status=%q want DOWN", view.Status)
	}
	if code := LatestResultCode(t, db, monitorID); code.Valid {
		t.Fatalf("[pipeline] http_code=%v want null", code)
	}
}

// Reporting for an id that does not exist is a client error, not a server
// fault, and writes nothing.
func TestReportUnknownMonitor(t *testing.T) {
	c := LoadCfg()
	payload := fmt.Sprintf(`{"id":%d,"http_code":200}`, RandID()+9_000_000)
	HTTPDoJSON(t, http.MethodPost, APIBaseURL(c, c.ChecksPath), []byte(payload), http.StatusNotFound)
}

// Deleting a monitor removes its result history with it.
func TestDeleteCascadesResults(t *testing.T) {
	c := LoadCfg()
	db := DBOpen(t, c.DBDSN)
	defer db.Close()

	ownerID := RandID()
	monitorID := RandID()
	SeedUser(t, db, ownerID, fmt.Sprintf("it-%d@example.com", ownerID))
	SeedMonitor(t, db, monitorID, ownerID, fmt.Sprintf("https://it-%d.example.com", monitorID), 5)

	payload := fmt.Sprintf(`{"id":%d,"http_code":200}`, monitorID)
	HTTPDoJSON(t, http.MethodPost, APIBaseURL(c, c.ChecksPath), []byte(payload), http.StatusOK)
	if n := CountResults(t, db, monitorID); n != 1 {
		t.Fatalf("[cascade] results=%d want 1", n)
	}

	HTTPDoJSON(t, http.MethodDelete, APIBaseURL(c, "/api/v1/monitors/%d", monitorID), nil, http.StatusNoContent)
	if n := CountResults(t, db, monitorID); n != 0 {
		t.Fatalf("[cascade] results=%d after delete, want 0", n)
	}
}

func claimBatch(t *testing.T, c Cfg, count int) []jobDTO {
	t.Helper()
	jobs, err := tryClaimBatch(c, count)
	if err != nil {
		t.Fatalf("[claim] %v", err)
	}
	return jobs
}

func tryClaimBatch(c Cfg, count int) ([]jobDTO, error) {
	resp, err := http.Get(APIBaseURL(c, c.ChecksPath+"?count=%d", count))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claim: unexpected status %d", resp.StatusCode)
	}
	var jobs []jobDTO
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("claim: decode jobs: %w", err)
	}
	return jobs, nil
}

func claimUntilFound(t *testing.T, c Cfg, monitorID int64, timeout time.Duration) jobDTO {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, j := range claimBatch(t, c, 100) {
			if j.ID == monitorID {
				return j
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return jobDTO{}
}
