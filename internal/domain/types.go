package domain

// RunStatus represents the execution state of a generation run
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunTimedOut  RunStatus = "TIMED_OUT"
	RunAborted   RunStatus = "ABORTED"
)

// Terminal returns true if no further transition is permitted from this status
func (s RunStatus) Terminal() bool {
	return s != RunRunning && s != ""
}

// GoalStatus represents the lifecycle state of a goal
type GoalStatus string

const (
	GoalDraft      GoalStatus = "draft"
	GoalProcessing GoalStatus = "processing"
	GoalActive     GoalStatus = "active"
	GoalPartial    GoalStatus = "partial"
	GoalFailed     GoalStatus = "failed"
)

// OutcomeStatus represents the result of generating tasks for one action
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Verdict classifies the aggregate result of a run
type Verdict string

const (
	VerdictAllSuccess     Verdict = "allSuccess"
	VerdictPartialSuccess Verdict = "partialSuccess"
	VerdictAllFailed      Verdict = "allFailed"
)
