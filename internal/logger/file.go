package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/crewlocal/internal/models"
)

// FileLogger writes a timestamped run log plus one detail file per task into
// a log directory and keeps latest.log pointing at the newest run.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	tasksDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir at the given level. The
// directory and its tasks/ subdirectory are created when missing.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	tasksDir := filepath.Join(logDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		tasksDir: tasksDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== crewlocal Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of this run's log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogTaskStart records which agent and model picked up a task.
func (fl *FileLogger) LogTaskStart(index, total int, task models.Task, agent models.Agent) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Task %d/%d %s started: agent %q, model %s\n",
		timestamp(), index, total, task.Name, agent.Role, agent.LLM))
}

// LogTaskComplete appends a completion line to the run log and writes the
// full prompt and response to tasks/NN-<name>.log.
func (fl *FileLogger) LogTaskComplete(index, total int, output models.TaskOutput) {
	if fl.shouldLog("info") {
		fl.writeRunLog(fmt.Sprintf("[%s] Task %d/%d %s complete: duration %.1fs%s\n",
			timestamp(), index, total, output.Task.Name, output.Duration.Seconds(), formatTaskMetrics(output, false)))
	}

	if err := fl.writeTaskLog(index, output); err != nil {
		fl.LogWarn(err.Error())
	}
}

func (fl *FileLogger) writeTaskLog(index int, output models.TaskOutput) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	path := filepath.Join(fl.tasksDir, fmt.Sprintf("%02d-%s.log", index, safeName(output.Task.Name)))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create task log file: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Task %d: %s ===\n", index, output.Task.Name)
	fmt.Fprintf(&b, "Agent: %s\n", output.Agent)
	fmt.Fprintf(&b, "Model: %s\n", output.Model)
	fmt.Fprintf(&b, "Duration: %.1fs\n", output.Duration.Seconds())
	fmt.Fprintf(&b, "Cached: %t\n", output.Cached)
	if output.OutputFile != "" {
		fmt.Fprintf(&b, "Output File: %s\n", output.OutputFile)
	}
	b.WriteString("\n")
	if output.Prompt != "" {
		fmt.Fprintf(&b, "Prompt:\n%s\n\n", output.Prompt)
	}
	if output.Feedback != "" {
		fmt.Fprintf(&b, "Reviewer Feedback:\n%s\n\n", output.Feedback)
	}
	fmt.Fprintf(&b, "Output:\n%s\n\n", output.Raw)
	fmt.Fprintf(&b, "Completed at: %s\n", time.Now().Format(time.RFC3339))

	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write task log: %w", err)
	}
	return nil
}

// LogSummary logs the run summary at INFO level.
func (fl *FileLogger) LogSummary(result *models.Result) {
	if result == nil || !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	fl.writeRunLog(fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Crew:         %s\n"+
			"[%s] Run ID:       %s\n"+
			"[%s] Tasks:        %d\n"+
			"[%s] Cached:       %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Completed at: %s\n",
		ts,
		ts, result.Crew,
		ts, result.RunID,
		ts, len(result.Tasks),
		ts, result.CachedCount(),
		ts, result.Duration.Seconds(),
		ts, time.Now().Format(time.RFC3339),
	))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}

// safeName maps a task name onto characters that are safe in file names.
func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
