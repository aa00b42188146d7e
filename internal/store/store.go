package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hochfrequenz/taskforge/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for goals, actions, generated
// tasks, and run records
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// One connection: sqlite has a single writer anyway, and a pool would
	// give every connection its own database when dbPath is ":memory:".
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertGoal inserts or updates a goal
func (s *Store) UpsertGoal(goal *domain.Goal) error {
	_, err := s.db.Exec(`
		INSERT INTO goals (id, owner_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at
	`,
		goal.ID,
		goal.OwnerID,
		goal.Title,
		goal.Description,
		string(goal.Status),
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	return err
}

// GetGoal retrieves a goal by ID
func (s *Store) GetGoal(id string) (*domain.Goal, error) {
	row := s.db.QueryRow(`
		SELECT id, owner_id, title, description, status, created_at, updated_at
		FROM goals WHERE id = ?
	`, id)

	var goal domain.Goal
	var description sql.NullString
	var status string
	err := row.Scan(&goal.ID, &goal.OwnerID, &goal.Title, &description, &status, &goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return nil, err
	}
	goal.Status = domain.GoalStatus(status)
	if description.Valid {
		goal.Description = description.String
	}
	return &goal, nil
}

// ListGoals returns all goals ordered by creation time
func (s *Store) ListGoals() ([]*domain.Goal, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, title, description, status, created_at, updated_at
		FROM goals ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		var goal domain.Goal
		var description sql.NullString
		var status string
		if err := rows.Scan(&goal.ID, &goal.OwnerID, &goal.Title, &description, &status, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return nil, err
		}
		goal.Status = domain.GoalStatus(status)
		if description.Valid {
			goal.Description = description.String
		}
		goals = append(goals, &goal)
	}
	return goals, rows.Err()
}

// UpdateGoalStatus updates a goal's status
func (s *Store) UpdateGoalStatus(id string, status domain.GoalStatus) error {
	res, err := s.db.Exec(`UPDATE goals SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("goal %s not found", id)
	}
	return nil
}

// UpsertAction inserts or updates an action
func (s *Store) UpsertAction(a *domain.Action) error {
	_, err := s.db.Exec(`
		INSERT INTO actions (id, goal_id, sub_goal_id, title, description, type, background, constraints, position, sub_goal_title, sub_goal_description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			type = excluded.type,
			background = excluded.background,
			constraints = excluded.constraints,
			position = excluded.position,
			sub_goal_title = excluded.sub_goal_title,
			sub_goal_description = excluded.sub_goal_description
	`,
		a.ID,
		a.GoalID,
		a.SubGoalID,
		a.Title,
		a.Description,
		a.Type,
		a.Background,
		a.Constraints,
		a.Position,
		a.SubGoalTitle,
		a.SubGoalDescription,
	)
	return err
}

// ListActions returns a goal's actions with parent-chain context, ordered
// by position
func (s *Store) ListActions(goalID string) ([]*domain.Action, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.goal_id, a.sub_goal_id, a.title, a.description, a.type,
		       a.background, a.constraints, a.position,
		       a.sub_goal_title, a.sub_goal_description,
		       g.title, g.description
		FROM actions a
		JOIN goals g ON g.id = a.goal_id
		WHERE a.goal_id = ?
		ORDER BY a.position
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func scanAction(rows *sql.Rows) (*domain.Action, error) {
	var a domain.Action
	var subGoalID, description, actionType, background, constraints sql.NullString
	var subGoalTitle, subGoalDescription, goalDescription sql.NullString

	err := rows.Scan(&a.ID, &a.GoalID, &subGoalID, &a.Title, &description, &actionType,
		&background, &constraints, &a.Position,
		&subGoalTitle, &subGoalDescription,
		&a.GoalTitle, &goalDescription)
	if err != nil {
		return nil, err
	}

	a.SubGoalID = subGoalID.String
	a.Description = description.String
	a.Type = actionType.String
	a.Background = background.String
	a.Constraints = constraints.String
	a.SubGoalTitle = subGoalTitle.String
	a.SubGoalDescription = subGoalDescription.String
	a.GoalDescription = goalDescription.String

	return &a, nil
}
