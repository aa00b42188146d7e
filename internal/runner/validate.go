package runner

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// validate checks the generation request and loads the goal's actions with
// their parent-chain context. Ownership checks and context assembly are
// plain reads against the store.
func (r *Runner) validate(goalID, ownerID string) (*domain.Goal, []*domain.Action, error) {
	if goalID == "" {
		return nil, nil, &ValidationError{Reason: "goal id is required"}
	}

	goal, err := r.store.GetGoal(goalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, &NotFoundError{Entity: "goal", ID: goalID}
		}
		return nil, nil, fmt.Errorf("loading goal %s: %w", goalID, err)
	}

	if ownerID != "" && goal.OwnerID != ownerID {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("goal %s does not belong to owner %s", goalID, ownerID)}
	}

	active, err := r.store.ActiveRunForGoal(goalID)
	if err != nil {
		return nil, nil, fmt.Errorf("checking active runs for %s: %w", goalID, err)
	}
	if active != "" {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("goal %s already has an active run %s", goalID, active)}
	}

	actions, err := r.store.ListActions(goalID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading actions for %s: %w", goalID, err)
	}
	if len(actions) == 0 {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("goal %s has no actions to generate tasks for", goalID)}
	}

	return goal, actions, nil
}
