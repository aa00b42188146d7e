package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// ErrNotRunning reports a write against a run that has already left RUNNING.
// Callers that race cancellation check for it with errors.Is.
var ErrNotRunning = errors.New("run is not running")

// CreateRun inserts a new run record in RUNNING state
func (s *Store) CreateRun(run *domain.Run) error {
	inputJSON, err := json.Marshal(run.Input)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (handle, goal_id, owner_id, status, started_at, total_items, processed_items, current_batch, total_batches, progress_percentage, eta_seconds, input)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.Handle,
		run.GoalID,
		run.OwnerID,
		string(run.Status),
		run.StartedAt,
		run.TotalItems,
		run.ProcessedItems,
		run.CurrentBatch,
		run.TotalBatches,
		run.ProgressPercentage,
		run.ETASeconds,
		string(inputJSON),
	)
	return err
}

// GetRun retrieves a run record by handle
func (s *Store) GetRun(handle string) (*domain.Run, error) {
	row := s.db.QueryRow(`
		SELECT handle, goal_id, owner_id, status, started_at, stopped_at,
		       total_items, processed_items, current_batch, total_batches,
		       progress_percentage, eta_seconds, input, output, error_kind, error_message
		FROM runs WHERE handle = ?
	`, handle)

	var run domain.Run
	var status string
	var stoppedAt sql.NullTime
	var input, output, errorKind, errorMessage sql.NullString

	err := row.Scan(&run.Handle, &run.GoalID, &run.OwnerID, &status, &run.StartedAt, &stoppedAt,
		&run.TotalItems, &run.ProcessedItems, &run.CurrentBatch, &run.TotalBatches,
		&run.ProgressPercentage, &run.ETASeconds, &input, &output, &errorKind, &errorMessage)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	if stoppedAt.Valid {
		t := stoppedAt.Time
		run.StoppedAt = &t
	}
	if input.Valid && input.String != "" {
		if err := json.Unmarshal([]byte(input.String), &run.Input); err != nil {
			return nil, err
		}
	}
	if output.Valid && output.String != "" {
		var out domain.RunOutput
		if err := json.Unmarshal([]byte(output.String), &out); err != nil {
			return nil, err
		}
		run.Output = &out
	}
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String

	return &run, nil
}

// ActiveRunForGoal returns the handle of a RUNNING run for the goal, or ""
func (s *Store) ActiveRunForGoal(goalID string) (string, error) {
	row := s.db.QueryRow(`SELECT handle FROM runs WHERE goal_id = ? AND status = ?`,
		goalID, string(domain.RunRunning))
	var handle string
	err := row.Scan(&handle)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return handle, nil
}

// UpdateRunProgress persists a progress snapshot. Writes only apply while the
// run is RUNNING and processed_items never decreases, so a stale caller
// cannot roll progress backwards.
func (s *Store) UpdateRunProgress(handle string, processedItems, currentBatch, progressPercentage, etaSeconds int) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET processed_items = ?, current_batch = ?, progress_percentage = ?, eta_seconds = ?
		WHERE handle = ? AND status = ? AND processed_items <= ?
	`, processedItems, currentBatch, progressPercentage, etaSeconds,
		handle, string(domain.RunRunning), processedItems)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a stale monotonic write (dropped on purpose) from a
		// write against a missing or already-terminal run.
		return s.checkRunning(handle)
	}
	return nil
}

// checkRunning reports why a guarded run update matched zero rows
func (s *Store) checkRunning(handle string) error {
	var status string
	err := s.db.QueryRow(`SELECT status FROM runs WHERE handle = ?`, handle).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("run %s not found", handle)
	}
	if err != nil {
		return err
	}
	if domain.RunStatus(status).Terminal() {
		return fmt.Errorf("run %s is %s: %w", handle, status, ErrNotRunning)
	}
	return nil
}

// FinishRun moves a RUNNING run to a terminal status with an output snapshot.
// A run that is already terminal stays untouched and the lost write is
// reported as ErrNotRunning.
func (s *Store) FinishRun(handle string, status domain.RunStatus, output *domain.RunOutput) error {
	if !status.Terminal() {
		return fmt.Errorf("finish requires a terminal status, got %s", status)
	}

	var outputJSON []byte
	if output != nil {
		var err error
		outputJSON, err = json.Marshal(output)
		if err != nil {
			return err
		}
	}

	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, stopped_at = ?, output = ?
		WHERE handle = ? AND status = ?
	`, string(status), time.Now(), string(outputJSON), handle, string(domain.RunRunning))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.checkRunning(handle)
	}
	return nil
}

// MarkRunFailed records a terminal failure with its error payload
func (s *Store) MarkRunFailed(handle, kind, message string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, stopped_at = ?, error_kind = ?, error_message = ?
		WHERE handle = ? AND status = ?
	`, string(domain.RunFailed), time.Now(), kind, message, handle, string(domain.RunRunning))
	return err
}

// CancelRun aborts a run, recording the cancellation reason, and reverts its
// goal to draft in one transaction: either both rows change or neither does.
func (s *Store) CancelRun(handle, goalID, reason string) (time.Time, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback()

	now := time.Now()

	res, err := tx.Exec(`
		UPDATE runs SET status = ?, stopped_at = ?, error_message = ? WHERE handle = ? AND status = ?
	`, string(domain.RunAborted), now, reason, handle, string(domain.RunRunning))
	if err != nil {
		return time.Time{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		return time.Time{}, fmt.Errorf("run %s is not running", handle)
	}

	res, err = tx.Exec(`UPDATE goals SET status = ?, updated_at = ? WHERE id = ?`,
		string(domain.GoalDraft), now, goalID)
	if err != nil {
		return time.Time{}, err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		return time.Time{}, fmt.Errorf("goal %s not found", goalID)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	return now, nil
}
