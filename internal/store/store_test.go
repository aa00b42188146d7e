package store

import (
	"errors"
	"testing"
	"time"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedGoal(t *testing.T, s *Store, id, ownerID string) {
	t.Helper()
	now := time.Now()
	err := s.UpsertGoal(&domain.Goal{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "Launch newsletter",
		Description: "Weekly product newsletter",
		Status:      domain.GoalDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStore_UpsertAndGetGoal(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")

	got, err := s.GetGoal("g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Launch newsletter" {
		t.Errorf("Title = %q, want %q", got.Title, "Launch newsletter")
	}
	if got.Status != domain.GoalDraft {
		t.Errorf("Status = %q, want draft", got.Status)
	}
}

func TestStore_ListActionsOrderedByPosition(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")

	for i, id := range []string{"a3", "a1", "a2"} {
		positions := map[string]int{"a1": 1, "a2": 2, "a3": 3}
		err := s.UpsertAction(&domain.Action{
			ID:       id,
			GoalID:   "g1",
			Title:    "Action " + id,
			Position: positions[id],
		})
		if err != nil {
			t.Fatalf("upserting action %d: %v", i, err)
		}
	}

	actions, err := s.ListActions("g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 3 {
		t.Fatalf("len(actions) = %d, want 3", len(actions))
	}
	for i, want := range []string{"a1", "a2", "a3"} {
		if actions[i].ID != want {
			t.Errorf("actions[%d].ID = %q, want %q", i, actions[i].ID, want)
		}
	}
	if actions[0].GoalTitle != "Launch newsletter" {
		t.Errorf("GoalTitle = %q, want goal title joined in", actions[0].GoalTitle)
	}
}

func TestStore_ReplaceTasksIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	if err := s.UpsertAction(&domain.Action{ID: "a1", GoalID: "g1", Title: "Draft outline", Position: 1}); err != nil {
		t.Fatal(err)
	}

	first := []domain.GeneratedTask{
		{Title: "Collect topics", EstimatedMinutes: 20},
		{Title: "Write intro", EstimatedMinutes: 30},
		{Title: "Review draft", EstimatedMinutes: 15},
	}
	if _, err := s.ReplaceTasks("a1", first); err != nil {
		t.Fatal(err)
	}

	second := []domain.GeneratedTask{
		{Title: "Outline sections", EstimatedMinutes: 25},
		{Title: "Write summary", EstimatedMinutes: 10},
	}
	ids, err := s.ReplaceTasks("a1", second)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("len(ids) = %d, want 2", len(ids))
	}

	tasks, err := s.ListTasks("a1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want exactly the second run's tasks", len(tasks))
	}
	if tasks[0].Title != "Outline sections" || tasks[1].Title != "Write summary" {
		t.Errorf("tasks = [%q, %q], want second run's tasks in order", tasks[0].Title, tasks[1].Title)
	}
}

func seedRun(t *testing.T, s *Store, handle, goalID string) {
	t.Helper()
	err := s.CreateRun(&domain.Run{
		Handle:       handle,
		GoalID:       goalID,
		OwnerID:      "u1",
		Status:       domain.RunRunning,
		StartedAt:    time.Now(),
		TotalItems:   10,
		TotalBatches: 2,
		Input:        domain.RunInput{GoalID: goalID, OwnerID: "u1", BatchSize: 8},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStore_RunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	seedRun(t, s, "r1", "g1")

	run, err := s.GetRun("r1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.RunRunning {
		t.Errorf("Status = %q, want RUNNING", run.Status)
	}
	if run.TotalItems != 10 || run.TotalBatches != 2 {
		t.Errorf("TotalItems/TotalBatches = %d/%d, want 10/2", run.TotalItems, run.TotalBatches)
	}
	if run.Input.BatchSize != 8 {
		t.Errorf("Input.BatchSize = %d, want 8", run.Input.BatchSize)
	}
	if run.StoppedAt != nil {
		t.Errorf("StoppedAt = %v, want nil for a running run", run.StoppedAt)
	}
}

func TestStore_UpdateRunProgressNeverDecreases(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	seedRun(t, s, "r1", "g1")

	if err := s.UpdateRunProgress("r1", 8, 1, 80, 60); err != nil {
		t.Fatal(err)
	}

	// A stale write with fewer processed items must not apply
	if err := s.UpdateRunProgress("r1", 4, 1, 40, 180); err != nil {
		t.Fatal(err)
	}

	run, _ := s.GetRun("r1")
	if run.ProcessedItems != 8 {
		t.Errorf("ProcessedItems = %d, want 8 (stale write ignored)", run.ProcessedItems)
	}
	if run.ProgressPercentage != 80 {
		t.Errorf("ProgressPercentage = %d, want 80", run.ProgressPercentage)
	}
}

func TestStore_FinishRunIsTerminal(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	seedRun(t, s, "r1", "g1")

	output := &domain.RunOutput{
		Verdict:      domain.VerdictPartialSuccess,
		SuccessCount: 7,
		FailedCount:  3,
		FailedIDs:    []string{"a", "b", "c"},
	}
	if err := s.FinishRun("r1", domain.RunSucceeded, output); err != nil {
		t.Fatal(err)
	}

	run, _ := s.GetRun("r1")
	if run.Status != domain.RunSucceeded {
		t.Errorf("Status = %q, want SUCCEEDED", run.Status)
	}
	if run.StoppedAt == nil {
		t.Error("StoppedAt = nil, want set")
	}
	if got := run.FailedIDs(); len(got) != 3 || got[0] != "a" {
		t.Errorf("FailedIDs = %v, want [a b c]", got)
	}

	// Terminal runs never mutate again
	if err := s.MarkRunFailed("r1", "InternalError", "late failure"); err != nil {
		t.Fatal(err)
	}
	run, _ = s.GetRun("r1")
	if run.Status != domain.RunSucceeded {
		t.Errorf("Status after late failure write = %q, want SUCCEEDED unchanged", run.Status)
	}

	// A second finish loses the race and says so
	if err := s.FinishRun("r1", domain.RunFailed, nil); !errors.Is(err, ErrNotRunning) {
		t.Errorf("FinishRun on terminal run = %v, want ErrNotRunning", err)
	}

	if err := s.FinishRun("r1", domain.RunRunning, nil); err == nil {
		t.Error("FinishRun with non-terminal status should error")
	}
}

func TestStore_UpdateRunProgressAfterFinish(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	seedRun(t, s, "r1", "g1")

	if err := s.FinishRun("r1", domain.RunSucceeded, nil); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateRunProgress("r1", 10, 2, 100, 0); !errors.Is(err, ErrNotRunning) {
		t.Errorf("progress write on terminal run = %v, want ErrNotRunning", err)
	}
	if err := s.UpdateRunProgress("missing", 1, 1, 10, 0); err == nil {
		t.Error("progress write on unknown run should error")
	}
}

func TestStore_CancelRunIsAtomic(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	if err := s.UpdateGoalStatus("g1", domain.GoalProcessing); err != nil {
		t.Fatal(err)
	}
	seedRun(t, s, "r1", "g1")

	stoppedAt, err := s.CancelRun("r1", "g1", "owner asked to stop")
	if err != nil {
		t.Fatal(err)
	}
	if stoppedAt.IsZero() {
		t.Error("stoppedAt is zero, want set")
	}

	run, _ := s.GetRun("r1")
	goal, _ := s.GetGoal("g1")
	if run.Status != domain.RunAborted {
		t.Errorf("run.Status = %q, want ABORTED", run.Status)
	}
	if run.ErrorMessage != "owner asked to stop" {
		t.Errorf("run.ErrorMessage = %q, want the cancellation reason", run.ErrorMessage)
	}
	if run.StoppedAt == nil {
		t.Error("run.StoppedAt = nil, want set")
	}
	if goal.Status != domain.GoalDraft {
		t.Errorf("goal.Status = %q, want draft", goal.Status)
	}
}

func TestStore_CancelRunRollsBackWhenGoalMissing(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	seedRun(t, s, "r1", "g1")

	// Failing half of the transaction must leave the run untouched
	if _, err := s.CancelRun("r1", "missing-goal", "cleanup"); err == nil {
		t.Fatal("CancelRun with missing goal should error")
	}

	run, _ := s.GetRun("r1")
	if run.Status != domain.RunRunning {
		t.Errorf("run.Status = %q, want RUNNING (rolled back)", run.Status)
	}
	if run.StoppedAt != nil {
		t.Errorf("run.StoppedAt = %v, want nil (rolled back)", run.StoppedAt)
	}
}

func TestStore_CancelRunOnTerminalRunErrors(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")
	seedRun(t, s, "r1", "g1")

	if err := s.FinishRun("r1", domain.RunSucceeded, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CancelRun("r1", "g1", "too late"); err == nil {
		t.Error("CancelRun on a terminal run should error")
	}
}

func TestStore_ActiveRunForGoal(t *testing.T) {
	s := newTestStore(t)
	seedGoal(t, s, "g1", "u1")

	handle, err := s.ActiveRunForGoal("g1")
	if err != nil {
		t.Fatal(err)
	}
	if handle != "" {
		t.Errorf("handle = %q, want empty with no runs", handle)
	}

	seedRun(t, s, "r1", "g1")
	handle, err = s.ActiveRunForGoal("g1")
	if err != nil {
		t.Fatal(err)
	}
	if handle != "r1" {
		t.Errorf("handle = %q, want r1", handle)
	}
}
