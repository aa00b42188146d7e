package domain

import "time"

// Goal is the owner entity whose status reflects the aggregate outcome
// of generating tasks for all of its actions
type Goal struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Status      GoalStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Action is one work item requiring AI task generation, loaded with the
// parent-chain context the generator needs. Immutable once loaded for a run.
type Action struct {
	ID          string
	GoalID      string
	SubGoalID   string
	Title       string
	Description string
	Type        string
	Background  string
	Constraints string
	Position    int

	// Parent-chain context
	SubGoalTitle       string
	SubGoalDescription string
	GoalTitle          string
	GoalDescription    string
}

// GeneratedTask is one AI-generated child of an action
type GeneratedTask struct {
	ID               string
	ActionID         string
	Title            string
	Description      string
	Type             string
	EstimatedMinutes int
	Position         int
}
