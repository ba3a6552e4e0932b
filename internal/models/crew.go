package models

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidCrew is wrapped by every crew validation error
var ErrInvalidCrew = errors.New("invalid crew")

// Process is the crew execution mode
type Process string

const (
	// ProcessSequential runs tasks in declared order
	ProcessSequential Process = "sequential"
	// ProcessHierarchical declares a manager model; tasks still run in declared order locally
	ProcessHierarchical Process = "hierarchical"
)

// ParseProcess normalizes a process name. Empty means sequential.
func ParseProcess(s string) (Process, error) {
	switch Process(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProcessSequential:
		return ProcessSequential, nil
	case ProcessHierarchical:
		return ProcessHierarchical, nil
	default:
		return "", fmt.Errorf("%w: unknown process %q (want sequential or hierarchical)", ErrInvalidCrew, s)
	}
}

// Title returns the display tag for the process, e.g. "Sequential"
func (p Process) Title() string {
	return cases.Title(language.English).String(string(p))
}

// Crew is a set of agents working through an ordered list of tasks
type Crew struct {
	Name          string  `yaml:"name"`
	Agents        []Agent `yaml:"agents"`
	Tasks         []Task  `yaml:"tasks"`
	Process       Process `yaml:"process"`
	ManagerLLM    string  `yaml:"manager_llm"` // Required for hierarchical crews
	Verbose       bool    `yaml:"verbose"`
	Memory        bool    `yaml:"memory"` // Shown in the banner; the local runner keeps no memory
	Cache         bool    `yaml:"cache"`  // Reuse identical model responses from the response cache
	MaxRPM        int     `yaml:"max_rpm"`
	EstimatedTime string  `yaml:"estimated_time"`
	Embedder      string  `yaml:"embedder"` // Accepted for compatibility, never acted on

	SourceFile string `yaml:"-"` // File the crew was parsed from
}

// Validate checks structural consistency: unique names, known references and
// context that only points backwards.
func (c *Crew) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("%w: at least one agent is required", ErrInvalidCrew)
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("%w: at least one task is required", ErrInvalidCrew)
	}

	process, err := ParseProcess(string(c.Process))
	if err != nil {
		return err
	}
	if process == ProcessHierarchical && c.ManagerLLM == "" {
		return fmt.Errorf("%w: hierarchical process requires manager_llm", ErrInvalidCrew)
	}
	if c.MaxRPM < 0 {
		return fmt.Errorf("%w: max_rpm must be >= 0, got %d", ErrInvalidCrew, c.MaxRPM)
	}

	roles := make(map[string]bool, len(c.Agents))
	for i := range c.Agents {
		agent := &c.Agents[i]
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("%w: agent %d: %v", ErrInvalidCrew, i+1, err)
		}
		if roles[agent.Role] {
			return fmt.Errorf("%w: duplicate agent role %q", ErrInvalidCrew, agent.Role)
		}
		roles[agent.Role] = true
	}

	seen := make(map[string]bool, len(c.Tasks))
	outputs := make(map[string]string)
	for i := range c.Tasks {
		task := &c.Tasks[i]
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: task %d: %v", ErrInvalidCrew, i+1, err)
		}
		if seen[task.Name] {
			return fmt.Errorf("%w: duplicate task name %q", ErrInvalidCrew, task.Name)
		}
		if !roles[task.Agent] {
			return fmt.Errorf("%w: task %q references unknown agent %q", ErrInvalidCrew, task.Name, task.Agent)
		}
		for _, ctx := range task.Context {
			if !seen[ctx] {
				return fmt.Errorf("%w: task %q context %q must name an earlier task", ErrInvalidCrew, task.Name, ctx)
			}
		}
		if out := task.OutputPath(); out != "" {
			if prev, ok := outputs[out]; ok {
				return fmt.Errorf("%w: tasks %q and %q write the same output file %q", ErrInvalidCrew, prev, task.Name, out)
			}
			outputs[out] = task.Name
		}
		seen[task.Name] = true
	}

	return nil
}

// Normalize canonicalizes the process name and fills agents without an llm
// with defaultModel. A hierarchical crew without manager_llm keeps it empty.
func (c *Crew) Normalize(defaultModel string) error {
	process, err := ParseProcess(string(c.Process))
	if err != nil {
		return err
	}
	c.Process = process
	for i := range c.Agents {
		if c.Agents[i].LLM == "" {
			c.Agents[i].LLM = defaultModel
		}
	}
	return nil
}

func (c *Crew) isHierarchical() bool {
	p, err := ParseProcess(string(c.Process))
	return err == nil && p == ProcessHierarchical
}

// Warnings lists settings the local runner accepts but does not act on
func (c *Crew) Warnings() []string {
	var warnings []string
	if c.isHierarchical() {
		warnings = append(warnings, "hierarchical process: tasks run in declared order, the manager does not delegate")
	}
	if c.Memory {
		warnings = append(warnings, "memory is enabled but agents do not share memory between tasks")
	}
	if c.Embedder != "" {
		warnings = append(warnings, fmt.Sprintf("embedder %q is ignored", c.Embedder))
	}
	for _, a := range c.Agents {
		if len(a.Tools) > 0 {
			warnings = append(warnings, fmt.Sprintf("agent %q declares tools (%s) that are not invoked", a.Role, strings.Join(a.Tools, ", ")))
		}
		if a.AllowDelegation {
			warnings = append(warnings, fmt.Sprintf("agent %q allows delegation, which is not performed", a.Role))
		}
	}
	for _, t := range c.Tasks {
		if len(t.Tools) > 0 {
			warnings = append(warnings, fmt.Sprintf("task %q declares tools (%s) that are not invoked", t.Name, strings.Join(t.Tools, ", ")))
		}
		if t.AsyncExecution {
			warnings = append(warnings, fmt.Sprintf("task %q is async but runs in declared order", t.Name))
		}
	}
	return warnings
}

// Agent returns the agent with the given role
func (c *Crew) Agent(role string) (*Agent, bool) {
	for i := range c.Agents {
		if c.Agents[i].Role == role {
			return &c.Agents[i], true
		}
	}
	return nil, false
}

// AgentRoles returns agent roles in declared order
func (c *Crew) AgentRoles() []string {
	roles := make([]string, len(c.Agents))
	for i, a := range c.Agents {
		roles[i] = a.Role
	}
	return roles
}

// TaskDescriptions returns one-line task descriptions in declared order
func (c *Crew) TaskDescriptions() []string {
	descriptions := make([]string, len(c.Tasks))
	for i := range c.Tasks {
		descriptions[i] = c.Tasks[i].Summary()
	}
	return descriptions
}

// OutputFiles returns the output paths of tasks that declare one, in declared order
func (c *Crew) OutputFiles() []string {
	var files []string
	for i := range c.Tasks {
		if out := c.Tasks[i].OutputPath(); out != "" {
			files = append(files, out)
		}
	}
	return files
}

// Model returns the distinct models used by the crew, in first-use order,
// with the manager model first for hierarchical crews.
func (c *Crew) Model() string {
	var models []string
	seen := make(map[string]bool)
	add := func(m string) {
		if m != "" && !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}
	if c.isHierarchical() {
		add(c.ManagerLLM)
	}
	for _, a := range c.Agents {
		add(a.LLM)
	}
	return strings.Join(models, ", ")
}
