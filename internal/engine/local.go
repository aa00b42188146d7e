package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// RunFunc executes one run to completion. A non-nil error marks the run
// FAILED on the engine; context cancellation is handled by the engine itself.
type RunFunc func(ctx context.Context, handle string, input domain.RunInput) error

// LocalEngine is an in-process RunController. Each run gets its own
// goroutine and cancellable context; MaxDuration turns into a deadline
// whose expiry records TIMED_OUT.
type LocalEngine struct {
	templates   map[string]RunFunc
	runs        map[string]*localRun
	maxDuration time.Duration
	mu          sync.RWMutex
}

type localRun struct {
	status    domain.RunStatus
	startDate time.Time
	stopDate  *time.Time
	errMsg    string
	cancel    context.CancelFunc
}

// NewLocalEngine creates a local engine. maxDuration <= 0 disables the
// per-run deadline.
func NewLocalEngine(maxDuration time.Duration) *LocalEngine {
	return &LocalEngine{
		templates:   make(map[string]RunFunc),
		runs:        make(map[string]*localRun),
		maxDuration: maxDuration,
	}
}

// RegisterTemplate binds a template name to its run function
func (e *LocalEngine) RegisterTemplate(name string, fn RunFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[name] = fn
}

// Start launches the template under the given handle in a new goroutine
func (e *LocalEngine) Start(ctx context.Context, templateRef, handle string, input domain.RunInput) error {
	e.mu.Lock()
	fn, ok := e.templates[templateRef]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown run template %q", templateRef)
	}
	if _, exists := e.runs[handle]; exists {
		e.mu.Unlock()
		return fmt.Errorf("run %s already exists", handle)
	}

	runCtx := context.Background()
	var cancel context.CancelFunc
	if e.maxDuration > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, e.maxDuration)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}

	e.runs[handle] = &localRun{
		status:    domain.RunRunning,
		startDate: time.Now(),
		cancel:    cancel,
	}
	e.mu.Unlock()

	go func() {
		defer cancel()
		err := fn(runCtx, handle, input)
		e.finish(handle, runCtx, err)
	}()

	return nil
}

// finish records the terminal state once the run function returns. A run
// already terminal (stopped while in flight) is left untouched.
func (e *LocalEngine) finish(handle string, runCtx context.Context, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.runs[handle]
	if !ok || run.status.Terminal() {
		return
	}

	now := time.Now()
	run.stopDate = &now

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		run.status = domain.RunTimedOut
		run.errMsg = "run exceeded maximum duration"
	case runCtx.Err() == context.Canceled:
		run.status = domain.RunAborted
	case err != nil:
		run.status = domain.RunFailed
		run.errMsg = err.Error()
	default:
		run.status = domain.RunSucceeded
	}
}

// Describe reports the engine's view of a run
func (e *LocalEngine) Describe(ctx context.Context, handle string) (Description, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	run, ok := e.runs[handle]
	if !ok {
		return Description{}, fmt.Errorf("run %s not found", handle)
	}

	desc := Description{
		Status:    run.status,
		StartDate: run.startDate,
		Error:     run.errMsg,
	}
	if run.stopDate != nil {
		t := *run.stopDate
		desc.StopDate = &t
	}
	return desc, nil
}

// Stop cancels a running run and records ABORTED with the given cause
func (e *LocalEngine) Stop(ctx context.Context, handle, cause string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.runs[handle]
	if !ok {
		return fmt.Errorf("run %s not found", handle)
	}
	if run.status.Terminal() {
		return fmt.Errorf("run %s is already %s", handle, run.status)
	}

	now := time.Now()
	run.status = domain.RunAborted
	run.stopDate = &now
	run.errMsg = cause
	run.cancel()

	return nil
}
