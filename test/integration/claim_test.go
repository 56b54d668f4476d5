//go:build integration

package integration

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// Concurrent claimers must receive disjoint batches: FOR UPDATE SKIP LOCKED
// under real connection concurrency, not just serialized handler calls.
func TestConcurrentClaimsAreDisjoint(t *testing.T) {
	c := LoadCfg()
	db := DBOpen(t, c.DBDSN)
	defer db.Close()

	const monitors = 40
	const claimers = 8

	ownerID := RandID()
	SeedUser(t, db, ownerID, fmt.Sprintf("it-%d@example.com", ownerID))

	ids := make(map[int64]bool, monitors)
	for i := 0; i < monitors; i++ {
		id := RandID() + int64(i)*1_000_000
		SeedMonitor(t, db, id, ownerID, fmt.Sprintf("https://it-claim-%d.example.com", id), 5)
		ids[id] = true
		defer CleanupMonitor(t, db, id)
	}

	var mu sync.Mutex
	seen := map[int64]int{}
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(20 * time.Second)
			for time.Now().Before(deadline) {
				batch, err := tryClaimBatch(c, 5)
				if err != nil {
					time.Sleep(200 * time.Millisecond)
					continue
				}
				mu.Lock()
				mine := 0
				for _, j := range batch {
					if ids[j.ID] {
						seen[j.ID]++
						mine++
					}
				}
				done := len(seen) == monitors
				mu.Unlock()
				if done {
					return
				}
				if mine == 0 {
					time.Sleep(100 * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	if len(seen) != monitors {
		t.Fatalf("[claim] claimed %d of %d seeded monitors", len(seen), monitors)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("[claim] monitor %d claimed %d times", id, n)
		}
	}
}

// A monitor stranded in_progress past the sweeper TTL becomes claimable
// again without any report ever arriving.
func TestSweeperReclaimsStuckMonitor(t *testing.T) {
	c := LoadCfg()
	db := DBOpen(t, c.DBDSN)
	defer db.Close()

	ownerID := RandID()
	monitorID := RandID()
	SeedUser(t, db, ownerID, fmt.Sprintf("it-%d@example.com", ownerID))
	SeedMonitor(t, db, monitorID, ownerID, fmt.Sprintf("https://it-%d.example.com", monitorID), 5)
	defer CleanupMonitor(t, db, monitorID)

	// claimed an hour ago and never reported
	ForceStuck(t, db, monitorID, time.Hour)

	claimed := claimUntilFound(t, c, monitorID, 2*time.Minute)
	if claimed.URL == "" {
		t.Fatalf("[sweeper] stuck monitor %d never reclaimed", monitorID)
	}
}
