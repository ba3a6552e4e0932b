package models

import "time"

// TaskOutput represents the result of executing a single task
type TaskOutput struct {
	Task       Task          // The task that was executed
	Agent      string        // Role of the agent that answered
	Model      string        // Model identifier that produced the output
	Prompt     string        // Final prompt sent to the model
	Raw        string        // Model response text
	OutputFile string        // Path written on disk ("" if the task has no output file)
	Duration   time.Duration // Time taken, including review rounds
	Cached     bool          // Output came from the response cache
	Feedback   string        // Reviewer feedback applied before acceptance
}

// Result represents the aggregate result of a crew kickoff
type Result struct {
	RunID    string        // Unique identifier of the kickoff
	Crew     string        // Crew name
	Tasks    []TaskOutput  // Per-task outputs in execution order
	Duration time.Duration // Total execution time
}

// Final returns the raw output of the last task, or "" for an empty result
func (r *Result) Final() string {
	if r == nil || len(r.Tasks) == 0 {
		return ""
	}
	return r.Tasks[len(r.Tasks)-1].Raw
}

// String returns the final output so a Result can be printed directly
func (r *Result) String() string {
	return r.Final()
}

// OutputFiles returns the files written during the run, in execution order
func (r *Result) OutputFiles() []string {
	if r == nil {
		return nil
	}
	var files []string
	for _, t := range r.Tasks {
		if t.OutputFile != "" {
			files = append(files, t.OutputFile)
		}
	}
	return files
}

// CachedCount returns how many task outputs were served from the cache
func (r *Result) CachedCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, t := range r.Tasks {
		if t.Cached {
			n++
		}
	}
	return n
}
