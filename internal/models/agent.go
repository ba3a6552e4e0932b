package models

import (
	"errors"
	"strings"
)

// Agent is a named role the crew runner prompts on behalf of a task
type Agent struct {
	Role            string   `yaml:"role"`             // Unique role name, also the agent's identifier
	Goal            string   `yaml:"goal"`             // What the agent is trying to achieve
	Backstory       string   `yaml:"backstory"`        // Persona text prepended to every prompt
	LLM             string   `yaml:"llm"`              // Model identifier, e.g. "ollama/qwen2.5:7b"
	Temperature     *float64 `yaml:"temperature"`      // Sampling temperature (nil = server default)
	AllowDelegation bool     `yaml:"allow_delegation"` // Accepted for compatibility, never acted on
	MaxIter         int      `yaml:"max_iter"`         // Accepted for compatibility, never acted on
	MaxRPM          int      `yaml:"max_rpm"`          // Requests per minute for this agent (0 = crew limit)
	Verbose         bool     `yaml:"verbose"`
	Tools           []string `yaml:"tools"` // Tool names; the local runner does not invoke tools
}

// Validate checks if the agent has all required fields
func (a *Agent) Validate() error {
	if strings.TrimSpace(a.Role) == "" {
		return errors.New("agent role is required")
	}
	if strings.TrimSpace(a.Goal) == "" {
		return errors.New("agent goal is required")
	}
	if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
		return errors.New("agent temperature must be between 0 and 2")
	}
	if a.MaxRPM < 0 {
		return errors.New("agent max_rpm must be >= 0")
	}
	return nil
}

// Persona renders the role, goal and backstory as the opening of a prompt
func (a *Agent) Persona() string {
	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(a.Role)
	sb.WriteString(".\n")
	if backstory := strings.TrimSpace(a.Backstory); backstory != "" {
		sb.WriteString(backstory)
		sb.WriteString("\n")
	}
	sb.WriteString("Your personal goal is: ")
	sb.WriteString(a.Goal)
	sb.WriteString("\n")
	return sb.String()
}
