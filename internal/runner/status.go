package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// DefaultCancelReason is recorded on the engine when no cause is given
const DefaultCancelReason = "cancelled by user"

// Status merges the engine's and the store's views of a run. The engine is
// authoritative for the lifecycle status and timestamps; the local record
// supplies the progress metrics and the failure detail the engine never sees.
type Status struct {
	Handle             string            `json:"handle"`
	GoalID             string            `json:"goal_id"`
	Status             domain.RunStatus  `json:"status"`
	StartedAt          time.Time         `json:"started_at"`
	StoppedAt          *time.Time        `json:"stopped_at,omitempty"`
	TotalItems         int               `json:"total_items"`
	ProcessedItems     int               `json:"processed_items"`
	CurrentBatch       int               `json:"current_batch"`
	TotalBatches       int               `json:"total_batches"`
	ProgressPercentage int               `json:"progress_percentage"`
	ETASeconds         int               `json:"eta_seconds"`
	FailedIDs          []string          `json:"failed_ids,omitempty"`
	Output             *domain.RunOutput `json:"output,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// CancelResult reports the outcome of a cancellation
type CancelResult struct {
	Status    domain.RunStatus `json:"status"`
	StoppedAt time.Time        `json:"stopped_at"`
}

// GetStatus returns the merged view of a run. When the engine cannot be
// reached the local record stands in whole, so polling keeps working through
// engine outages.
func (r *Runner) GetStatus(ctx context.Context, handle string) (*Status, error) {
	run, err := r.store.GetRun(handle)
	if err != nil {
		return nil, &NotFoundError{Entity: "run", ID: handle}
	}

	st := &Status{
		Handle:             run.Handle,
		GoalID:             run.GoalID,
		Status:             run.Status,
		StartedAt:          run.StartedAt,
		StoppedAt:          run.StoppedAt,
		TotalItems:         run.TotalItems,
		ProcessedItems:     run.ProcessedItems,
		CurrentBatch:       run.CurrentBatch,
		TotalBatches:       run.TotalBatches,
		ProgressPercentage: run.ProgressPercentage,
		ETASeconds:         run.ETASeconds,
		FailedIDs:          run.FailedIDs(),
		Output:             run.Output,
		Error:              run.ErrorMessage,
	}

	desc, err := r.controller.Describe(ctx, handle)
	if err != nil {
		log.Printf("describing run %s on engine: %v", handle, err)
		return st, nil
	}

	if desc.Status != "" {
		st.Status = desc.Status
	}
	if !desc.StartDate.IsZero() {
		st.StartedAt = desc.StartDate
	}
	if desc.StopDate != nil {
		st.StoppedAt = desc.StopDate
	}
	if desc.Error != "" && st.Error == "" {
		st.Error = desc.Error
	}
	return st, nil
}

// Cancel aborts a running run and rewinds its goal to draft. The engine stop
// must be confirmed before the store transitions; the store transition is a
// single transaction flipping both the run and the goal. An empty reason
// falls back to DefaultCancelReason.
func (r *Runner) Cancel(ctx context.Context, handle, reason string) (*CancelResult, error) {
	if reason == "" {
		reason = DefaultCancelReason
	}

	run, err := r.store.GetRun(handle)
	if err != nil {
		return nil, &NotFoundError{Entity: "run", ID: handle}
	}
	if run.Status.Terminal() {
		return nil, fmt.Errorf("run %s is already %s", handle, run.Status)
	}

	if err := r.controller.Stop(ctx, handle, reason); err != nil {
		return nil, &OrchestratorError{Op: "stop", Err: err}
	}

	stoppedAt, err := r.store.CancelRun(handle, run.GoalID, reason)
	if err != nil {
		return nil, &PersistenceError{Op: "cancellation", Err: err}
	}

	if r.cfg.CleanupOnCancel {
		// Best effort; partially generated tasks are valid data either way.
		if err := r.store.DeleteTasksForGoal(run.GoalID); err != nil {
			log.Printf("cleaning up tasks for goal %s: %v", run.GoalID, err)
		}
	}

	return &CancelResult{Status: domain.RunAborted, StoppedAt: stoppedAt}, nil
}
