package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Task is one unit of periodic housekeeping.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// MaintenanceScheduler runs housekeeping tasks on a cron schedule: expiring
// rate-limit records, purging revoked tokens and refreshing gauges.
type MaintenanceScheduler struct {
	schedule string
	tasks    []Task
	log      *zap.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	done      chan struct{}

	// runMu serializes task runs; it is never held together with mu.
	runMu   sync.Mutex
	lastRun time.Time
}

// NewMaintenanceScheduler creates a scheduler. Nothing runs until Start.
func NewMaintenanceScheduler(schedule string, log *zap.Logger, tasks ...Task) *MaintenanceScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaintenanceScheduler{
		schedule: schedule,
		tasks:    tasks,
		log:      log,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule checks a five-field cron spec or an @descriptor.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Start schedules the tasks. The scheduler stops when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid maintenance schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	s.done = make(chan struct{})

	s.log.Info("Maintenance scheduler started",
		zap.String("schedule", s.schedule),
		zap.Int("tasks", len(s.tasks)),
		zap.Time("next_run", s.cron.Entry(entryID).Next))

	done := s.done
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	return nil
}

// Stop removes the job and waits for a running pass to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cron.Remove(s.entryID)
	<-s.cron.Stop().Done()
	close(s.done)

	s.isRunning = false
	s.log.Info("Maintenance scheduler stopped")
}

// RunNow runs every task once, in order. A failing task is logged and does
// not prevent the rest from running.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		if err := task.Run(ctx); err != nil {
			s.log.Warn("Maintenance task failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		s.log.Debug("Maintenance task finished", zap.String("task", task.Name))
	}
	s.lastRun = time.Now()
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next pass will occur, or nil when stopped.
func (s *MaintenanceScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

// LastRun returns when the last pass completed; zero if none has.
func (s *MaintenanceScheduler) LastRun() time.Time {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.lastRun
}
