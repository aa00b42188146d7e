package aggregate

import (
	"fmt"
	"strings"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// Result is the reduction of all item outcomes of a run into one verdict
type Result struct {
	Verdict      domain.Verdict
	SuccessCount int
	FailedCount  int
	FailedIDs    []string
	Message      string
}

// Reduce folds per-action outcomes into a run verdict. FailedIDs preserves
// the original item order. Exactly one verdict holds whenever outcomes is
// non-empty.
func Reduce(outcomes []domain.ItemOutcome) Result {
	var r Result
	for _, o := range outcomes {
		if o.Failed() {
			r.FailedCount++
			r.FailedIDs = append(r.FailedIDs, o.ActionID)
		} else {
			r.SuccessCount++
		}
	}

	switch {
	case r.FailedCount == 0:
		r.Verdict = domain.VerdictAllSuccess
	case r.SuccessCount == 0:
		r.Verdict = domain.VerdictAllFailed
	default:
		r.Verdict = domain.VerdictPartialSuccess
	}

	r.Message = r.message()
	return r
}

func (r Result) message() string {
	switch r.Verdict {
	case domain.VerdictAllSuccess:
		return fmt.Sprintf("All %d actions completed successfully.", r.SuccessCount)
	case domain.VerdictPartialSuccess:
		return fmt.Sprintf("%d actions succeeded, %d actions failed. Failed actions: %s.",
			r.SuccessCount, r.FailedCount, strings.Join(r.FailedIDs, ", "))
	default:
		return fmt.Sprintf("All %d actions failed. Failed actions: %s.",
			r.FailedCount, strings.Join(r.FailedIDs, ", "))
	}
}

// GoalStatus maps a verdict to the owner goal's resulting status
func (r Result) GoalStatus() domain.GoalStatus {
	switch r.Verdict {
	case domain.VerdictAllSuccess:
		return domain.GoalActive
	case domain.VerdictPartialSuccess:
		return domain.GoalPartial
	default:
		return domain.GoalFailed
	}
}

// Output converts the result into a run output snapshot
func (r Result) Output() *domain.RunOutput {
	return &domain.RunOutput{
		Verdict:      r.Verdict,
		SuccessCount: r.SuccessCount,
		FailedCount:  r.FailedCount,
		FailedIDs:    r.FailedIDs,
		Message:      r.Message,
	}
}
