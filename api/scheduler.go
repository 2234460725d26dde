/*
scheduler.go - Automatic monthly payment materialization

PURPOSE:
  Periodically materializes the current month's payments for every
  building, so committees that forget to press the button still get their
  rows. Off by default; enabled with `vaad serve --auto-materialize`.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Every tick runs every building: materialization is idempotent, so a
    check that finds nothing to do writes nothing, and tenants added
    mid-month are billed on the next tick
  - Logs only runs that created rows or failed
  - A failing building is logged and retried on the next tick; other
    buildings are not affected

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: false)

USAGE:
  scheduler := NewMaterializeScheduler(store, materializer)
  scheduler.Enabled = true
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - payments.go: MaterializePayments endpoint (manual run)
  - billing/materialize.go: Materializer
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// systemUser is the acting user recorded for scheduled runs.
const systemUser billing.UserID = "system-scheduler"

// MaterializeScheduler handles automated monthly materialization.
type MaterializeScheduler struct {
	Store         billing.BuildingStore
	Materializer  *billing.Materializer
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMaterializeScheduler creates a new scheduler.
func NewMaterializeScheduler(store billing.BuildingStore, materializer *billing.Materializer) *MaterializeScheduler {
	return &MaterializeScheduler{
		Store:         store,
		Materializer:  materializer,
		CheckInterval: 1 * time.Hour,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the scheduler.
func (ms *MaterializeScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}
	if ms.CheckInterval <= 0 {
		log.Printf("[Scheduler] Invalid check interval %v, not starting", ms.CheckInterval)
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.stop = make(chan struct{})
	ms.wg.Add(1)

	go ms.run(ms.ticker, ms.stop)

	log.Printf("[Scheduler] Started with check interval: %v", ms.CheckInterval)
}

// Stop stops the scheduler and waits for a running check to finish.
func (ms *MaterializeScheduler) Stop() {
	ms.mu.Lock()
	if ms.ticker == nil {
		ms.mu.Unlock()
		return
	}
	ms.ticker.Stop()
	close(ms.stop)
	ms.ticker = nil
	ms.mu.Unlock()

	ms.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (ms *MaterializeScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ms.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	ms.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			ms.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow materializes the current month for every building and returns
// the reports of the buildings that succeeded.
func (ms *MaterializeScheduler) RunNow(ctx context.Context) []billing.Report {
	month := billing.MonthOf(ms.Now())

	buildings, err := ms.Store.ListBuildings(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing buildings: %v", err)
		return nil
	}

	var reports []billing.Report
	created, failed := 0, 0
	for _, b := range buildings {
		scope := billing.BuildingScope{BuildingID: b.ID, UserID: systemUser, Role: billing.RoleAdmin}
		report, err := ms.Materializer.Materialize(ctx, scope, month)
		if err != nil {
			log.Printf("[Scheduler] Error materializing %s for %s: %v", month, b.ID, err)
			failed++
			continue
		}
		reports = append(reports, report)
		created += report.Created
	}

	if created > 0 || failed > 0 {
		log.Printf("[Scheduler] %s: %d buildings run, %d payments created, %d failed", month, len(reports), created, failed)
	}
	return reports
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ms *MaterializeScheduler) GetNextRunTime() time.Time {
	return ms.Now().Add(ms.CheckInterval)
}
