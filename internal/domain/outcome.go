package domain

// ItemOutcome records the result of generating and persisting tasks for
// one action. Failures are values here, never propagated errors: one bad
// action must not abort its batch or the run.
type ItemOutcome struct {
	ActionID string
	Status   OutcomeStatus
	Tasks    []GeneratedTask
	Error    string
}

// Failed returns true if the outcome records a failure
func (o ItemOutcome) Failed() bool {
	return o.Status == OutcomeFailed
}
