// Package engine runs a crew's tasks against a local model server.
//
// Tasks run one at a time in declared order. Each task's prompt carries the
// outputs of the tasks named in its context, so a later task can build on
// an earlier one.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/harrison/crewlocal/internal/cache"
	"github.com/harrison/crewlocal/internal/filelock"
	"github.com/harrison/crewlocal/internal/models"
	"github.com/harrison/crewlocal/internal/ollama"
)

// Generator produces one completion. *ollama.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
}

// Cache stores responses by key. *cache.Store satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, model, response string) error
}

// Logger defines the run events the runner reports.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogTaskStart(index, total int, task models.Task, agent models.Agent)
	LogTaskComplete(index, total int, output models.TaskOutput)
	LogSummary(result *models.Result)
}

// Runner executes crews. Generator is required; every other field is optional.
type Runner struct {
	Generator    Generator
	Logger       Logger
	Cache        Cache    // Consulted only for crews with cache enabled
	Reviewer     Reviewer // Asked about human_input tasks; nil accepts every output
	DefaultModel string   // Fills agents that name no llm
	OutputDir    string   // Prefix for relative output files

	now func() time.Time
}

// NewRunner creates a Runner around gen.
func NewRunner(gen Generator, logger Logger) *Runner {
	if gen == nil {
		panic("generator cannot be nil")
	}
	return &Runner{
		Generator: gen,
		Logger:    logger,
		now:       time.Now,
	}
}

func (r *Runner) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

// run holds the state of one kickoff.
type run struct {
	crew     *models.Crew
	outputs  map[string]string
	crewRate *rate.Limiter
	rates    map[string]*rate.Limiter
}

// Kickoff runs every task of crew in order and returns the collected
// outputs. On failure the returned Result holds the tasks that finished
// before the error.
func (r *Runner) Kickoff(ctx context.Context, crew *models.Crew) (*models.Result, error) {
	if crew == nil {
		return nil, fmt.Errorf("crew cannot be nil")
	}
	if err := crew.Normalize(r.DefaultModel); err != nil {
		return nil, err
	}
	if err := crew.Validate(); err != nil {
		return nil, err
	}

	start := r.clock()
	result := &models.Result{
		RunID: uuid.NewString(),
		Crew:  crew.Name,
	}

	if len(crew.OutputFiles()) > 0 {
		lock, err := r.acquireRunLock()
		if err != nil {
			return result, err
		}
		defer lock.Unlock()
	}

	for _, w := range crew.Warnings() {
		r.logWarn(w)
	}
	r.logDebug(fmt.Sprintf("run %s: %d tasks, process %s", result.RunID, len(crew.Tasks), crew.Process))

	st := &run{
		crew:     crew,
		outputs:  make(map[string]string, len(crew.Tasks)),
		crewRate: newLimiter(crew.MaxRPM),
		rates:    make(map[string]*rate.Limiter),
	}
	for _, a := range crew.Agents {
		st.rates[a.Role] = newLimiter(a.MaxRPM)
	}

	total := len(crew.Tasks)
	for i, task := range crew.Tasks {
		out, err := r.runTask(ctx, st, i+1, total, task)
		if err != nil {
			result.Duration = r.clock().Sub(start)
			return result, err
		}
		result.Tasks = append(result.Tasks, out)
		st.outputs[task.Name] = out.Raw
	}

	result.Duration = r.clock().Sub(start)
	if r.Logger != nil {
		r.Logger.LogSummary(result)
	}
	return result, nil
}

func (r *Runner) acquireRunLock() (*filelock.FileLock, error) {
	dir := r.OutputDir
	if dir == "" {
		dir = "."
	}
	lock, err := filelock.AcquireRunLock(dir)
	if errors.Is(err, filelock.ErrLocked) {
		return nil, fmt.Errorf("%w: %v", ErrRunInProgress, err)
	}
	return lock, err
}

func (r *Runner) runTask(ctx context.Context, st *run, index, total int, task models.Task) (models.TaskOutput, error) {
	found, ok := st.crew.Agent(task.Agent)
	if !ok {
		return models.TaskOutput{}, NewTaskError(task.Name, fmt.Sprintf("unknown agent %q", task.Agent), nil)
	}
	agent := *found
	if r.Logger != nil {
		r.Logger.LogTaskStart(index, total, task, agent)
	}

	taskStart := r.clock()
	var prior []string
	for _, name := range task.Context {
		prior = append(prior, st.outputs[name])
	}

	req := ollama.GenerateRequest{
		Model:       agent.LLM,
		System:      agent.Persona(),
		Prompt:      buildPrompt(task, prior),
		Temperature: agent.Temperature,
	}

	raw, cached, err := r.generate(ctx, st, agent, req)
	if err != nil {
		return models.TaskOutput{}, NewTaskError(task.Name, "generation failed", err)
	}

	out := models.TaskOutput{
		Task:   task,
		Agent:  agent.Role,
		Model:  agent.LLM,
		Prompt: req.System + "\n" + req.Prompt,
		Raw:    raw,
		Cached: cached,
	}

	if task.HumanInput && r.Reviewer != nil {
		feedback, err := r.Reviewer.Review(ctx, task, raw)
		if err != nil {
			return models.TaskOutput{}, NewTaskError(task.Name, "review failed", err)
		}
		if feedback != "" {
			r.logDebug(fmt.Sprintf("task %s: revising with reviewer feedback", task.Name))
			req.Prompt = revisionPrompt(req.Prompt, raw, feedback)
			revised, revisedCached, err := r.generate(ctx, st, agent, req)
			if err != nil {
				return models.TaskOutput{}, NewTaskError(task.Name, "revision failed", err)
			}
			out.Raw = revised
			out.Cached = revisedCached
			out.Feedback = feedback
			out.Prompt = req.System + "\n" + req.Prompt
		}
	}

	if path := r.outputPath(task); path != "" {
		if err := filelock.AtomicWrite(path, []byte(out.Raw)); err != nil {
			return models.TaskOutput{}, NewTaskError(task.Name, "failed to save output", err)
		}
		out.OutputFile = path
	}

	out.Duration = r.clock().Sub(taskStart)
	if r.Logger != nil {
		r.Logger.LogTaskComplete(index, total, out)
	}
	return out, nil
}

// generate answers req from the cache when the crew allows it, otherwise
// from the model after waiting on the crew and agent rate limits.
func (r *Runner) generate(ctx context.Context, st *run, agent models.Agent, req ollama.GenerateRequest) (string, bool, error) {
	useCache := st.crew.Cache && r.Cache != nil
	key := cache.Key(agent.LLM, req.System+"\n"+req.Prompt, req.Temperature)

	if useCache {
		raw, ok, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.logWarn(fmt.Sprintf("cache lookup failed: %v", err))
		} else if ok {
			return raw, true, nil
		}
	}

	if err := waitAll(ctx, st.crewRate, st.rates[agent.Role]); err != nil {
		return "", false, fmt.Errorf("rate limit wait: %w", err)
	}

	raw, err := r.Generator.Generate(ctx, req)
	if err != nil {
		return "", false, err
	}

	if useCache {
		if err := r.Cache.Put(ctx, key, agent.LLM, raw); err != nil {
			r.logWarn(fmt.Sprintf("cache store failed: %v", err))
		}
	}
	return raw, false, nil
}

// outputPath resolves where task's output is written, or "" for none.
func (r *Runner) outputPath(task models.Task) string {
	path := task.OutputPath()
	if path == "" {
		return ""
	}
	path = filepath.FromSlash(path)
	if r.OutputDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.OutputDir, path)
	}
	return path
}

func (r *Runner) logWarn(msg string) {
	if r.Logger != nil {
		r.Logger.LogWarn(msg)
	}
}

func (r *Runner) logDebug(msg string) {
	if r.Logger != nil {
		r.Logger.LogDebug(msg)
	}
}
