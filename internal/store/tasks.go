package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hochfrequenz/taskforge/internal/domain"
)

// ReplaceTasks replaces an action's generated tasks within a single
// transaction: delete all existing children, then insert the new set. Running
// it twice leaves exactly the second run's tasks, so retries never accumulate
// duplicates. Returns the new task ids.
func (s *Store) ReplaceTasks(actionID string, tasks []domain.GeneratedTask) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE action_id = ?`, actionID); err != nil {
		return nil, fmt.Errorf("deleting tasks for %s: %w", actionID, err)
	}

	ids := make([]string, 0, len(tasks))
	for i, task := range tasks {
		id := task.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.Exec(`
			INSERT INTO tasks (id, action_id, title, description, type, estimated_minutes, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, actionID, task.Title, task.Description, task.Type, task.EstimatedMinutes, i)
		if err != nil {
			return nil, fmt.Errorf("inserting task for %s: %w", actionID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListTasks returns an action's generated tasks ordered by position
func (s *Store) ListTasks(actionID string) ([]*domain.GeneratedTask, error) {
	rows, err := s.db.Query(`
		SELECT id, action_id, title, description, type, estimated_minutes, position
		FROM tasks WHERE action_id = ? ORDER BY position
	`, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.GeneratedTask
	for rows.Next() {
		var task domain.GeneratedTask
		var description, taskType sql.NullString
		if err := rows.Scan(&task.ID, &task.ActionID, &task.Title, &description, &taskType, &task.EstimatedMinutes, &task.Position); err != nil {
			return nil, err
		}
		task.Description = description.String
		task.Type = taskType.String
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// DeleteTasksForGoal removes all generated tasks under a goal's actions.
// Used by the optional cleanup-on-cancel policy.
func (s *Store) DeleteTasksForGoal(goalID string) error {
	_, err := s.db.Exec(`
		DELETE FROM tasks WHERE action_id IN (SELECT id FROM actions WHERE goal_id = ?)
	`, goalID)
	return err
}
