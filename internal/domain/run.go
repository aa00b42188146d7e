package domain

import "time"

// Run is the workflow execution record for one generation run of a goal.
// The handle doubles as the reference into the run-control engine.
type Run struct {
	Handle             string
	GoalID             string
	OwnerID            string
	Status             RunStatus
	StartedAt          time.Time
	StoppedAt          *time.Time
	TotalItems         int
	ProcessedItems     int
	CurrentBatch       int
	TotalBatches       int
	ProgressPercentage int
	ETASeconds         int
	Input              RunInput
	Output             *RunOutput
	ErrorKind          string
	ErrorMessage       string
}

// RunInput is the snapshot of what the run was asked to do
type RunInput struct {
	GoalID    string   `json:"goal_id"`
	OwnerID   string   `json:"owner_id"`
	ActionIDs []string `json:"action_ids"`
	BatchSize int      `json:"batch_size"`
}

// RunOutput is the snapshot written when a run completes
type RunOutput struct {
	Verdict      Verdict  `json:"verdict"`
	SuccessCount int      `json:"success_count"`
	FailedCount  int      `json:"failed_count"`
	FailedIDs    []string `json:"failed_ids,omitempty"`
	Message      string   `json:"message"`
}

// FailedIDs returns the failed action ids recorded on completion, if any
func (r *Run) FailedIDs() []string {
	if r.Output == nil {
		return nil
	}
	return r.Output.FailedIDs
}
