package runner

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/taskforge/internal/batch"
	"github.com/hochfrequenz/taskforge/internal/domain"
	"github.com/hochfrequenz/taskforge/internal/engine"
	"github.com/hochfrequenz/taskforge/internal/generate"
	"github.com/hochfrequenz/taskforge/internal/notify"
	"github.com/hochfrequenz/taskforge/internal/progress"
)

// TemplateGenerateTasks is the run-engine template for goal task generation
const TemplateGenerateTasks = "generate-tasks"

// Store is the persistence surface the runner depends on
type Store interface {
	GetGoal(id string) (*domain.Goal, error)
	UpdateGoalStatus(id string, status domain.GoalStatus) error
	ListActions(goalID string) ([]*domain.Action, error)

	CreateRun(run *domain.Run) error
	GetRun(handle string) (*domain.Run, error)
	ActiveRunForGoal(goalID string) (string, error)
	UpdateRunProgress(handle string, processedItems, currentBatch, progressPercentage, etaSeconds int) error
	FinishRun(handle string, status domain.RunStatus, output *domain.RunOutput) error
	MarkRunFailed(handle, kind, message string) error
	CancelRun(handle, goalID, reason string) (time.Time, error)

	ReplaceTasks(actionID string, tasks []domain.GeneratedTask) ([]string, error)
	DeleteTasksForGoal(goalID string) error
}

// Config tunes the generation pipeline
type Config struct {
	BatchSize       int
	MaxParallel     int
	SecondsPerItem  int
	CleanupOnCancel bool
}

// ProgressFunc receives a progress snapshot after each completed batch
type ProgressFunc func(handle, goalID string, snap progress.Snapshot)

// Runner coordinates generation runs end to end: validation, batching,
// per-item generation and persistence, progress, aggregation, and the
// owner goal's final status.
type Runner struct {
	store      Store
	gen        generate.Generator
	controller engine.RunController
	tracker    *progress.Tracker
	reporter   *ErrorReporter
	notifier   notify.Notifier
	cfg        Config
	onProgress ProgressFunc
}

// New creates a Runner. All collaborators are injected; nothing is created
// at package scope.
func New(store Store, gen generate.Generator, controller engine.RunController, notifier notify.Notifier, cfg Config) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = batch.DefaultSize
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}

	return &Runner{
		store:      store,
		gen:        gen,
		controller: controller,
		tracker:    progress.NewTracker(store, cfg.SecondsPerItem),
		reporter:   NewErrorReporter(store, notifier),
		notifier:   notifier,
		cfg:        cfg,
	}
}

// SetProgressFunc registers a callback for per-batch progress snapshots
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.onProgress = fn
}

// StartGeneration validates the request and starts a generation run for all
// actions under the goal. Returns the run handle.
func (r *Runner) StartGeneration(ctx context.Context, goalID, ownerID string) (string, error) {
	goal, actions, err := r.validate(goalID, ownerID)
	if err != nil {
		// Fail fast: no run record exists yet, so the reporter only
		// emits the notification payload.
		r.reporter.Report(Classify(err), "", goalID, ownerID)
		return "", err
	}

	actionIDs := make([]string, len(actions))
	for i, a := range actions {
		actionIDs[i] = a.ID
	}

	input := domain.RunInput{
		GoalID:    goal.ID,
		OwnerID:   goal.OwnerID,
		ActionIDs: actionIDs,
		BatchSize: r.cfg.BatchSize,
	}

	// The run record and the goal transition are persisted before the engine
	// dispatches anything: the pipeline's first progress write must find the
	// record already there.
	handle := uuid.NewString()
	run := &domain.Run{
		Handle:       handle,
		GoalID:       goal.ID,
		OwnerID:      goal.OwnerID,
		Status:       domain.RunRunning,
		StartedAt:    time.Now(),
		TotalItems:   len(actions),
		TotalBatches: batch.NumBatches(len(actions), r.cfg.BatchSize),
		ETASeconds:   r.tracker.ETASeconds(0, len(actions)),
		Input:        input,
	}
	if err := r.store.CreateRun(run); err != nil {
		persErr := &PersistenceError{Op: "run record", Err: err}
		r.reporter.Report(Classify(persErr), "", goalID, goal.OwnerID)
		return "", persErr
	}

	if err := r.store.UpdateGoalStatus(goal.ID, domain.GoalProcessing); err != nil {
		r.reporter.Report(Classify(&PersistenceError{Op: "goal status", Err: err}), handle, goalID, goal.OwnerID)
	}

	if err := r.controller.Start(ctx, TemplateGenerateTasks, handle, input); err != nil {
		orchErr := &OrchestratorError{Op: "start", Err: err}
		// Report marks the run FAILED so it cannot block future runs.
		r.reporter.Report(Classify(orchErr), handle, goalID, goal.OwnerID)
		if revertErr := r.store.UpdateGoalStatus(goal.ID, domain.GoalDraft); revertErr != nil {
			log.Printf("reverting goal %s to draft after failed start: %v", goal.ID, revertErr)
		}
		return "", orchErr
	}

	return handle, nil
}
