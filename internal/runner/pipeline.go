package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hochfrequenz/taskforge/internal/aggregate"
	"github.com/hochfrequenz/taskforge/internal/batch"
	"github.com/hochfrequenz/taskforge/internal/domain"
	"github.com/hochfrequenz/taskforge/internal/notify"
	"github.com/hochfrequenz/taskforge/internal/store"
)

// Execute is the run function behind TemplateGenerateTasks. It re-loads the
// actions, walks them batch by batch, records progress after each batch, and
// folds the outcomes into the run's verdict and the goal's final status.
func (r *Runner) Execute(ctx context.Context, handle string, input domain.RunInput) error {
	actions, err := r.store.ListActions(input.GoalID)
	if err != nil {
		stageErr := Classify(&PersistenceError{Op: "actions", Err: err})
		r.reporter.Report(stageErr, handle, input.GoalID, input.OwnerID)
		return stageErr
	}
	if len(input.ActionIDs) > 0 {
		actions = filterActions(actions, input.ActionIDs)
	}

	batches := batch.Partition(actions, input.BatchSize)
	total := len(actions)
	processed := 0
	outcomes := make([]domain.ItemOutcome, 0, total)

	for _, b := range batches {
		// A cancelled run stops between batches; in-flight items of the
		// current batch still finish via the generator's own ctx checks.
		if err := ctx.Err(); err != nil {
			return err
		}

		outcomes = append(outcomes, r.runBatch(ctx, b)...)
		processed += len(b.Items)

		snap, err := r.tracker.Record(handle, processed, total, b.Number, len(batches))
		if err != nil {
			// Progress is advisory: a lost snapshot must not fail the run.
			log.Printf("recording progress for run %s: %v", handle, err)
			continue
		}
		if r.onProgress != nil {
			r.onProgress(handle, input.GoalID, snap)
		}
	}

	// A cancellation that landed during the last batch already rewound the
	// goal to draft; finishing now would overwrite that.
	if err := ctx.Err(); err != nil {
		return err
	}

	result := aggregate.Reduce(outcomes)

	if err := r.store.FinishRun(handle, domain.RunSucceeded, result.Output()); err != nil {
		if errors.Is(err, store.ErrNotRunning) {
			// A cancellation won the race to the terminal state; its
			// goal rewind stands.
			log.Printf("run %s finished after cancellation, keeping cancelled state", handle)
			return nil
		}
		stageErr := Classify(&PersistenceError{Op: "run output", Err: err})
		r.reporter.Report(stageErr, handle, input.GoalID, input.OwnerID)
		return stageErr
	}
	if err := r.store.UpdateGoalStatus(input.GoalID, result.GoalStatus()); err != nil {
		stageErr := Classify(&PersistenceError{Op: "goal status", Err: err})
		r.reporter.Report(stageErr, handle, input.GoalID, input.OwnerID)
		return stageErr
	}

	r.notifyCompletion(input, handle, result)
	return nil
}

// runBatch generates and persists tasks for every action of one batch with
// bounded parallelism. Outcomes come back in the batch's item order
// regardless of which worker finished first.
func (r *Runner) runBatch(ctx context.Context, b batch.Batch) []domain.ItemOutcome {
	outcomes := make([]domain.ItemOutcome, len(b.Items))
	sem := make(chan struct{}, r.cfg.MaxParallel)
	var wg sync.WaitGroup

	for i, action := range b.Items {
		wg.Add(1)
		go func(i int, action *domain.Action) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = r.processItem(ctx, action)
		}(i, action)
	}
	wg.Wait()

	return outcomes
}

// processItem generates tasks for one action and persists them, replacing
// whatever an earlier run left behind. Failures become outcome values.
func (r *Runner) processItem(ctx context.Context, action *domain.Action) domain.ItemOutcome {
	tasks, err := r.gen.GenerateTasks(ctx, action)
	if err != nil {
		log.Printf("generating tasks for action %s: %v", action.ID, err)
		return domain.ItemOutcome{
			ActionID: action.ID,
			Status:   domain.OutcomeFailed,
			Error:    fmt.Sprintf("%s: %v", KindGeneration, err),
		}
	}

	if _, err := r.store.ReplaceTasks(action.ID, tasks); err != nil {
		log.Printf("persisting tasks for action %s: %v", action.ID, err)
		return domain.ItemOutcome{
			ActionID: action.ID,
			Status:   domain.OutcomeFailed,
			Error:    fmt.Sprintf("%s: %v", KindPersistence, err),
		}
	}

	return domain.ItemOutcome{
		ActionID: action.ID,
		Status:   domain.OutcomeSuccess,
		Tasks:    tasks,
	}
}

func (r *Runner) notifyCompletion(input domain.RunInput, handle string, result aggregate.Result) {
	typ := notify.NotifySuccess
	title := "Task generation finished"
	switch result.Verdict {
	case domain.VerdictPartialSuccess:
		typ = notify.NotifyWarning
		title = "Task generation partially finished"
	case domain.VerdictAllFailed:
		typ = notify.NotifyError
		title = "Task generation failed"
	}

	if err := r.notifier.Send(notify.Notification{
		Title:     title,
		Message:   result.Message,
		Type:      typ,
		GoalID:    input.GoalID,
		RunHandle: handle,
	}); err != nil {
		log.Printf("sending completion notification for goal %s: %v", input.GoalID, err)
	}
}

// filterActions keeps the actions named in ids, preserving store order
func filterActions(actions []*domain.Action, ids []string) []*domain.Action {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	kept := actions[:0:0]
	for _, a := range actions {
		if wanted[a.ID] {
			kept = append(kept, a)
		}
	}
	return kept
}
