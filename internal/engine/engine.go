// Package engine abstracts the run-control engine that owns workflow
// lifecycle: starting a run, describing its state, and stopping it. Any
// scheduler can back the interface; the orchestration logic never sees
// what is behind it.
package engine

import (
	"context"
	"time"

	"github.com/hochfrequenz/taskforge/internal/domain"
)

// Description is the engine's view of a run. The engine is authoritative for
// whether a run is still running and for its timestamps; it knows nothing of
// business-level progress.
type Description struct {
	Status    domain.RunStatus
	StartDate time.Time
	StopDate  *time.Time
	Error     string
}

// RunController drives run lifecycle on the external engine
type RunController interface {
	// Start launches a run of the named template under the caller-supplied
	// handle. The caller persists its run record before starting, so the
	// engine never executes against a record that does not exist yet.
	Start(ctx context.Context, templateRef, handle string, input domain.RunInput) error
	// Describe reports the engine's current view of a run
	Describe(ctx context.Context, handle string) (Description, error)
	// Stop requests the engine stop a run. Returning nil confirms the stop.
	Stop(ctx context.Context, handle, cause string) error
}
