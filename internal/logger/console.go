// Package logger provides logging implementations for crew runs.
//
// Loggers record run progress at the task and summary levels. Implementations
// are safe for concurrent use and write to the console, to per-run log files,
// or to both through MultiLogger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/crewlocal/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer, prefixing every line with an
// [HH:MM:SS] timestamp. Messages below the configured level are dropped.
// Color output is enabled for os.Stdout and os.Stderr unless NO_COLOR is set.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer. A nil
// writer discards everything. Valid levels are trace, debug, info, warn and
// error (case-insensitive); anything else means info.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// fatih/color already honors NO_COLOR and non-TTY stdout
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel lowercases level and falls back to "info" when unknown.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes "[HH:MM:SS] [LEVEL] message" when filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), label, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogTaskStart logs the start of a task at INFO level.
// Format: "[HH:MM:SS] Task 2/3 write: Award-Winning Tech Journalist (llama3.1:8b)"
func (cl *ConsoleLogger) LogTaskStart(index, total int, task models.Task, agent models.Agent) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.progress == nil || cl.progress.Total() != total {
		cl.progress = NewProgressBar(total, 10, cl.colorOutput)
	}

	name := task.Name
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(task.Name)
	}
	fmt.Fprintf(cl.writer, "[%s] Task %d/%d %s: %s (%s)\n", timestamp(), index, total, name, agent.Role, agent.LLM)
}

// LogTaskComplete logs a finished task at INFO level followed by the run's
// progress bar. The prompt-level details go to DEBUG.
func (cl *ConsoleLogger) LogTaskComplete(index, total int, output models.TaskOutput) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.progress == nil || cl.progress.Total() != total {
		cl.progress = NewProgressBar(total, 10, cl.colorOutput)
	}
	cl.progress.Update(index)

	ts := timestamp()
	fmt.Fprintf(cl.writer, "[%s] %s %s (%s)%s\n", ts, output.Task.Name, cl.completeText(), formatDuration(output.Duration), formatTaskMetrics(output, cl.colorOutput))
	fmt.Fprintf(cl.writer, "[%s] Progress: %s\n", ts, cl.progress.Render())
}

func (cl *ConsoleLogger) completeText() string {
	if cl.colorOutput {
		return color.New(color.FgGreen).Sprint("complete")
	}
	return "complete"
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result *models.Result) {
	if cl.writer == nil || result == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	header := "=== Run Summary ==="
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Crew: %s\n", ts, result.Crew)
	fmt.Fprintf(&b, "[%s] Run ID: %s\n", ts, result.RunID)
	fmt.Fprintf(&b, "[%s] Tasks: %d\n", ts, len(result.Tasks))
	fmt.Fprintf(&b, "[%s] Cached: %d\n", ts, result.CachedCount())
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(result.Duration))
	cl.writer.Write([]byte(b.String()))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, remainder/time.Second)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, remainder/time.Second)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogDebug(message string) {}
func (n *NoOpLogger) LogInfo(message string)  {}
func (n *NoOpLogger) LogWarn(message string)  {}
func (n *NoOpLogger) LogError(message string) {}

func (n *NoOpLogger) LogTaskStart(index, total int, task models.Task, agent models.Agent) {}

func (n *NoOpLogger) LogTaskComplete(index, total int, output models.TaskOutput) {}

func (n *NoOpLogger) LogSummary(result *models.Result) {}
