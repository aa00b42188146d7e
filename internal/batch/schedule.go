package batch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleEntry configures a recurring generation run for one goal
type ScheduleEntry struct {
	Goal             string `toml:"goal"`
	Cron             string `toml:"cron"`
	NotifyOnComplete bool   `toml:"notify_on_complete"`
}

// Validate checks if the schedule entry is valid
func (e *ScheduleEntry) Validate() error {
	if e.Goal == "" {
		return fmt.Errorf("schedule goal is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Scheduler triggers generation runs for goals on their cron schedules
type Scheduler struct {
	entries  map[string]ScheduleEntry
	parser   cron.Parser
	lastRun  map[string]time.Time
	running  map[string]bool
	mu       sync.RWMutex
	stopChan chan struct{}
}

// NewScheduler creates a new schedule-driven run trigger
func NewScheduler(entries []ScheduleEntry) (*Scheduler, error) {
	s := &Scheduler{
		entries:  make(map[string]ScheduleEntry),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:  make(map[string]time.Time),
		running:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		s.entries[e.Goal] = e
	}

	return s, nil
}

// NextRun returns the next scheduled run time for a goal
func (s *Scheduler) NextRun(goal string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[goal]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(e.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// ShouldRun returns true if a goal's scheduled run is due
func (s *Scheduler) ShouldRun(goal string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[goal]
	if !ok {
		return false
	}

	if s.running[goal] {
		return false
	}

	sched, err := s.parser.Parse(e.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[goal]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}

	nextRun := sched.Next(lastRun)
	return time.Now().After(nextRun)
}

// MarkRunning marks a goal's scheduled run as in flight
func (s *Scheduler) MarkRunning(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[goal] = true
}

// MarkComplete marks a goal's scheduled run as finished
func (s *Scheduler) MarkComplete(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[goal] = false
	s.lastRun[goal] = time.Now()
}

// Entry returns the schedule entry for a goal
func (s *Scheduler) Entry(goal string) (ScheduleEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[goal]
	return e, ok
}

// Goals returns all scheduled goal ids
func (s *Scheduler) Goals() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	goals := make([]string, 0, len(s.entries))
	for goal := range s.entries {
		goals = append(goals, goal)
	}
	return goals
}

// Start begins the scheduler loop, invoking runFunc for each due goal
func (s *Scheduler) Start(runFunc func(ScheduleEntry) error) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			for goal := range s.entries {
				if s.ShouldRun(goal) {
					e, _ := s.Entry(goal)
					s.MarkRunning(goal)
					go func(e ScheduleEntry) {
						if err := runFunc(e); err != nil {
							log.Printf("scheduled run for goal %s failed: %v", e.Goal, err)
						}
						s.MarkComplete(e.Goal)
					}(e)
				}
			}
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
