/*
retention.go - Background purge of expired soft-deletes

PURPOSE:
  Periodically hard-deletes transactions that have been soft-deleted for
  longer than the retention window. Until then a deleted transaction can
  always be restored; after the sweep it is gone for good.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each pass delegates to Ledger.PurgeExpired, which decides eligibility
  - Safe to run alongside the manual sweep endpoint; both paths are
    idempotent

USAGE:
  sweeper := NewRetentionSweeper(ledger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: SweepRetention endpoint (manual trigger)
  - engine/ledger.go: PurgeExpired and the retention window
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

// RetentionSweeper purges expired soft-deleted transactions on a timer.
type RetentionSweeper struct {
	Ledger        *engine.Ledger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRetentionSweeper creates a sweeper with a daily check interval.
func NewRetentionSweeper(ledger *engine.Ledger) *RetentionSweeper {
	return &RetentionSweeper{
		Ledger:        ledger,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (rs *RetentionSweeper) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Retention] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Retention] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the sweeper.
func (rs *RetentionSweeper) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Retention] Stopped")
	}
}

func (rs *RetentionSweeper) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RetentionSweeper) sweep() {
	purged, err := rs.Ledger.PurgeExpired(context.Background())
	if err != nil {
		log.Printf("[Retention] Sweep failed: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("[Retention] Purged %d expired transaction(s)", purged)
	}
}
