package models

import (
	"errors"
	"path"
	"strings"
)

// Task represents a single unit of work assigned to one agent
type Task struct {
	Name           string   `yaml:"name"`            // Unique task name, referenced by Context
	Description    string   `yaml:"description"`     // Full task description/prompt
	ExpectedOutput string   `yaml:"expected_output"` // Description of what a good answer looks like
	Agent          string   `yaml:"agent"`           // Role of the agent performing the task
	Context        []string `yaml:"context"`         // Names of earlier tasks whose output is passed in
	OutputFile     string   `yaml:"output_file"`     // File receiving the raw output (optional)
	AsyncExecution bool     `yaml:"async_execution"` // Accepted for compatibility; tasks always run in order
	HumanInput     bool     `yaml:"human_input"`     // Ask the reviewer for feedback before accepting
	Tools          []string `yaml:"tools"`           // Tool names; the local runner does not invoke tools
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("task name is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return errors.New("task description is required")
	}
	if strings.TrimSpace(t.Agent) == "" {
		return errors.New("task agent is required")
	}
	return nil
}

// OutputPath returns the file the task output is written to, or "" when the
// task has no output file. An output_file ending in "/" names a directory and
// receives "<name>.md".
func (t *Task) OutputPath() string {
	if t.OutputFile == "" {
		return ""
	}
	if strings.HasSuffix(t.OutputFile, "/") {
		return path.Join(t.OutputFile, t.Name+".md")
	}
	return t.OutputFile
}

// Summary returns the description collapsed onto one line
func (t *Task) Summary() string {
	return strings.Join(strings.Fields(t.Description), " ")
}
