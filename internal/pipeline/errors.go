package pipeline

import (
	"errors"
	"fmt"
)

// StageError wraps a failure from a critical pipeline stage so callers can
// report which stage halted the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageNameFromError extracts the failing stage name, defaulting to
// "pipeline" for errors raised outside any stage.
func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "pipeline"
}

// SyncError reports that every stage succeeded and persisted, but the final
// re-read of the deal failed. The analysis is durable; only the returned
// snapshot is stale.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("analysis persisted but final deal read failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
