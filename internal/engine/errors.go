package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunInProgress is returned when another run holds the output directory.
var ErrRunInProgress = errors.New("another crew run is using the output directory")

// TaskError represents an error that occurred while running one task.
type TaskError struct {
	TaskName  string    // Name of the task that failed
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewTaskError creates a new TaskError with the current timestamp.
func NewTaskError(name, msg string, err error) *TaskError {
	return &TaskError{
		TaskName:  name,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TaskError.
func (e *TaskError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("task %s: %s", e.TaskName, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TaskError) Unwrap() error {
	return e.Err
}
