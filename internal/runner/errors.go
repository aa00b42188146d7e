package runner

import (
	"errors"
	"fmt"
)

// Error kinds reported on failed runs and in notifications
const (
	KindValidation   = "ValidationError"
	KindNotFound     = "NotFoundError"
	KindGeneration   = "TransientGenerationError"
	KindPersistence  = "PersistenceError"
	KindOrchestrator = "OrchestratorError"
	KindInternal     = "InternalError"
)

// ValidationError reports bad input or ownership. It fails fast: no run is
// created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NotFoundError reports a missing referenced entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// OrchestratorError reports a run-control engine failure, fatal to the run
type OrchestratorError struct {
	Op  string
	Err error
}

func (e *OrchestratorError) Error() string {
	return fmt.Sprintf("run engine %s: %v", e.Op, e.Err)
}

func (e *OrchestratorError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed store write outside the per-item boundary
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// StageError is the structured {kind, cause} payload consumed by the error
// reporter
type StageError struct {
	Kind  string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Classify wraps an error into a StageError by its type. Unknown errors are
// internal by definition.
func Classify(err error) *StageError {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}

	kind := KindInternal
	var (
		validationErr   *ValidationError
		notFoundErr     *NotFoundError
		orchestratorErr *OrchestratorError
		persistenceErr  *PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		kind = KindValidation
	case errors.As(err, &notFoundErr):
		kind = KindNotFound
	case errors.As(err, &orchestratorErr):
		kind = KindOrchestrator
	case errors.As(err, &persistenceErr):
		kind = KindPersistence
	}

	return &StageError{Kind: kind, Cause: err}
}
