package generate

import (
	"fmt"
	"strings"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

const systemPrompt = `You break a single action down into small, concrete tasks.
Each task must be completable in one sitting and carry a realistic duration
estimate in minutes. Always answer by calling the submit_tasks function.
Do not ask for clarification. Make reasonable decisions based on the action content.`

// BuildPrompt assembles the generation prompt from an action and its
// parent-chain context
func BuildPrompt(action *domain.Action) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Goal: %s\n", action.GoalTitle)
	if action.GoalDescription != "" {
		fmt.Fprintf(&b, "Goal description: %s\n", action.GoalDescription)
	}
	if action.SubGoalTitle != "" {
		fmt.Fprintf(&b, "Sub-goal: %s\n", action.SubGoalTitle)
		if action.SubGoalDescription != "" {
			fmt.Fprintf(&b, "Sub-goal description: %s\n", action.SubGoalDescription)
		}
	}

	fmt.Fprintf(&b, "\nAction: %s\n", action.Title)
	if action.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", action.Description)
	}
	if action.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", action.Type)
	}
	if action.Background != "" {
		fmt.Fprintf(&b, "Background: %s\n", action.Background)
	}
	if action.Constraints != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", action.Constraints)
	}

	b.WriteString("\nBreak this action into tasks and submit them with submit_tasks.")
	return b.String()
}
