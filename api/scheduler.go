/*
scheduler.go - Automated ledger integrity scheduler

PURPOSE:
  Periodically rebuilds every employee's balance from the transaction
  history and compares it with the stored balance. Any drift is reported
  through the coordinator as an ERROR audit entry plus a SYSTEM_BUG ticket,
  so operators see it in the back office.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Records every run (running -> completed/failed) for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (false when the interval is 0)

USAGE:
  scheduler := NewIntegrityScheduler(coord, store, time.Hour, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ledger/balance.go: VerifyBalances
  - handlers.go: GET /api/integrity (on-demand check, nothing recorded)
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/canteen-ledger/coordinator"
	"github.com/warp/canteen-ledger/ledger"
	"github.com/warp/canteen-ledger/store/sqlite"
	"go.uber.org/zap"
)

// RunStore persists integrity runs.
type RunStore interface {
	SaveIntegrityRun(ctx context.Context, r sqlite.IntegrityRun) error
	ListIntegrityRuns(ctx context.Context, limit int) ([]sqlite.IntegrityRun, error)
}

// IntegrityScheduler handles periodic balance verification.
type IntegrityScheduler struct {
	Coord         *coordinator.Coordinator
	Runs          RunStore
	CheckInterval time.Duration
	Enabled       bool

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewIntegrityScheduler creates a new scheduler. A zero interval disables it.
func NewIntegrityScheduler(coord *coordinator.Coordinator, runs RunStore, interval time.Duration, log *zap.Logger) *IntegrityScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &IntegrityScheduler{
		Coord:         coord,
		Runs:          runs,
		CheckInterval: interval,
		Enabled:       interval > 0,
		log:           log.Named("integrity"),
	}
}

// Start begins the scheduler.
func (s *IntegrityScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.Info("scheduler started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *IntegrityScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.log.Info("scheduler stopped")
	}
}

func (s *IntegrityScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.check()

	for {
		select {
		case <-ticker.C:
			s.check()
		case <-stop:
			return
		}
	}
}

func (s *IntegrityScheduler) check() {
	if _, err := s.RunNow(context.Background()); err != nil {
		s.log.Error("integrity check failed", zap.Error(err))
	}
}

// RunNow performs one check and records it.
func (s *IntegrityScheduler) RunNow(ctx context.Context) (sqlite.IntegrityRun, error) {
	run := sqlite.IntegrityRun{
		ID:        "run-" + ledger.UUIDGenerator(),
		Status:    sqlite.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.save(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	snap := s.Coord.Snapshot()
	drifts := ledger.VerifyBalances(snap)
	run.EmployeesChecked = len(snap.Employees)
	run.DriftCount = len(drifts)

	if err := s.Coord.ReportDrift(ctx, drifts); err != nil {
		run.Status = sqlite.RunFailed
		run.Error = err.Error()
		s.finish(ctx, &run)
		return run, err
	}

	run.Status = sqlite.RunCompleted
	s.finish(ctx, &run)

	if len(drifts) > 0 {
		for _, d := range drifts {
			s.log.Error("balance drift",
				zap.String("employee_id", d.EmployeeID),
				zap.String("external_id", d.ExternalID),
				zap.String("recorded", d.Recorded.String()),
				zap.String("reconstructed", d.Reconstructed.String()),
			)
		}
	} else {
		s.log.Debug("balances consistent", zap.Int("employees", run.EmployeesChecked))
	}
	return run, nil
}

func (s *IntegrityScheduler) finish(ctx context.Context, run *sqlite.IntegrityRun) {
	done := time.Now().UTC()
	run.CompletedAt = &done
	if err := s.save(ctx, *run); err != nil {
		s.log.Error("failed to update run record", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *IntegrityScheduler) save(ctx context.Context, run sqlite.IntegrityRun) error {
	if s.Runs == nil {
		return nil
	}
	return s.Runs.SaveIntegrityRun(ctx, run)
}

// GetNextRunTime returns when the next scheduled check will occur.
func (s *IntegrityScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(s.CheckInterval)
}
