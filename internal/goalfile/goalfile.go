// Package goalfile imports goal definitions from YAML files. A goal file
// declares one goal, optional sub-goals, and the ordered actions whose tasks
// the generation pipeline will produce.
package goalfile

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// File is the on-disk shape of a goal definition
type File struct {
	Goal     GoalDef      `yaml:"goal"`
	SubGoals []SubGoalDef `yaml:"sub_goals"`
	Actions  []ActionDef  `yaml:"actions"`
}

// GoalDef declares the goal itself
type GoalDef struct {
	ID          string `yaml:"id"`
	Owner       string `yaml:"owner"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// SubGoalDef declares an intermediate grouping referenced by actions
type SubGoalDef struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// ActionDef declares one action. Position follows file order.
type ActionDef struct {
	ID          string `yaml:"id"`
	SubGoal     string `yaml:"sub_goal"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Background  string `yaml:"background"`
	Constraints string `yaml:"constraints"`
}

// Store is the persistence surface the importer writes to
type Store interface {
	UpsertGoal(goal *domain.Goal) error
	UpsertAction(a *domain.Action) error
}

// Parse decodes and validates a goal file
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing goal file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Goal.Title == "" {
		return fmt.Errorf("goal title is required")
	}
	if len(f.Actions) == 0 {
		return fmt.Errorf("goal file declares no actions")
	}

	subGoals := make(map[string]bool, len(f.SubGoals))
	for i, sg := range f.SubGoals {
		if sg.ID == "" {
			return fmt.Errorf("sub-goal %d has no id", i+1)
		}
		if subGoals[sg.ID] {
			return fmt.Errorf("duplicate sub-goal id %q", sg.ID)
		}
		subGoals[sg.ID] = true
	}

	for i, a := range f.Actions {
		if a.Title == "" {
			return fmt.Errorf("action %d has no title", i+1)
		}
		if a.SubGoal != "" && !subGoals[a.SubGoal] {
			return fmt.Errorf("action %q references unknown sub-goal %q", a.Title, a.SubGoal)
		}
	}
	return nil
}

// Import parses the file at path and upserts its goal and actions. Missing
// ids are generated, so re-importing the same file with explicit ids is
// idempotent while id-less files create fresh entities.
func Import(s Store, path string) (*domain.Goal, []*domain.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	goal := &domain.Goal{
		ID:          f.Goal.ID,
		OwnerID:     f.Goal.Owner,
		Title:       f.Goal.Title,
		Description: f.Goal.Description,
		Status:      domain.GoalDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	if err := s.UpsertGoal(goal); err != nil {
		return nil, nil, fmt.Errorf("importing goal %q: %w", goal.Title, err)
	}

	subGoals := make(map[string]SubGoalDef, len(f.SubGoals))
	for _, sg := range f.SubGoals {
		subGoals[sg.ID] = sg
	}

	actions := make([]*domain.Action, 0, len(f.Actions))
	for i, def := range f.Actions {
		a := &domain.Action{
			ID:          def.ID,
			GoalID:      goal.ID,
			SubGoalID:   def.SubGoal,
			Title:       def.Title,
			Description: def.Description,
			Type:        def.Type,
			Background:  def.Background,
			Constraints: def.Constraints,
			Position:    i + 1,
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if sg, ok := subGoals[def.SubGoal]; ok {
			a.SubGoalTitle = sg.Title
			a.SubGoalDescription = sg.Description
		}
		if err := s.UpsertAction(a); err != nil {
			return nil, nil, fmt.Errorf("importing action %q: %w", a.Title, err)
		}
		actions = append(actions, a)
	}

	return goal, actions, nil
}
