package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hochfrequenz/taskforge/internal/domain"
	"github.com/tmc/langchaingo/llms"
)

// Generator produces task descriptors for one action
type Generator interface {
	GenerateTasks(ctx context.Context, action *domain.Action) ([]domain.GeneratedTask, error)
}

// taskPayload mirrors the submit_tasks function arguments
type taskPayload struct {
	Tasks []struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		Type             string `json:"type"`
		EstimatedMinutes int    `json:"estimated_minutes"`
	} `json:"tasks"`
}

// LLMGenerator generates tasks by asking a language model to call the
// submit_tasks function with a structured task list
type LLMGenerator struct {
	model     llms.Model
	maxTokens int
}

// NewLLMGenerator creates a generator backed by the given model
func NewLLMGenerator(model llms.Model, maxTokens int) *LLMGenerator {
	return &LLMGenerator{model: model, maxTokens: maxTokens}
}

var submitTasksTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "submit_tasks",
		Description: "Submit the list of tasks derived from the action.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tasks": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":             map[string]any{"type": "string"},
							"description":       map[string]any{"type": "string"},
							"type":              map[string]any{"type": "string"},
							"estimated_minutes": map[string]any{"type": "integer"},
						},
						"required": []string{"title", "estimated_minutes"},
					},
				},
			},
			"required": []string{"tasks"},
		},
	},
}

// GenerateTasks calls the model and normalizes its output. Transport and
// malformed-output failures are returned as plain errors for the caller to
// fold into an item outcome.
func (g *LLMGenerator) GenerateTasks(ctx context.Context, action *domain.Action) ([]domain.GeneratedTask, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(BuildPrompt(action))},
		},
	}

	opts := []llms.CallOption{llms.WithTools([]llms.Tool{submitTasksTool})}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generation call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generation returned no choices")
	}

	choice := resp.Choices[0]
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != "submit_tasks" {
			continue
		}
		var payload taskPayload
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &payload); err != nil {
			return nil, fmt.Errorf("malformed submit_tasks arguments: %w", err)
		}
		return normalize(action.ID, payload)
	}

	return nil, fmt.Errorf("generation did not call submit_tasks")
}

// normalize trims and defaults the raw payload into task descriptors
func normalize(actionID string, payload taskPayload) ([]domain.GeneratedTask, error) {
	tasks := make([]domain.GeneratedTask, 0, len(payload.Tasks))
	for _, raw := range payload.Tasks {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			continue
		}
		taskType := strings.TrimSpace(raw.Type)
		if taskType == "" {
			taskType = "task"
		}
		minutes := raw.EstimatedMinutes
		if minutes <= 0 {
			minutes = 30
		}
		tasks = append(tasks, domain.GeneratedTask{
			ActionID:         actionID,
			Title:            title,
			Description:      strings.TrimSpace(raw.Description),
			Type:             taskType,
			EstimatedMinutes: minutes,
			Position:         len(tasks) + 1,
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("generation produced no usable tasks")
	}
	return tasks, nil
}
