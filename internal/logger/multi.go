package logger

import "github.com/harrison/crewlocal/internal/models"

// Logger is the set of events a crew run reports.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogTaskStart(index, total int, task models.Task, agent models.Agent)
	LogTaskComplete(index, total int, output models.TaskOutput)
	LogSummary(result *models.Result)
}

// MultiLogger forwards every event to each of its loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogTaskStart(index, total int, task models.Task, agent models.Agent) {
	for _, l := range m.loggers {
		l.LogTaskStart(index, total, task, agent)
	}
}

func (m *MultiLogger) LogTaskComplete(index, total int, output models.TaskOutput) {
	for _, l := range m.loggers {
		l.LogTaskComplete(index, total, output)
	}
}

func (m *MultiLogger) LogSummary(result *models.Result) {
	for _, l := range m.loggers {
		l.LogSummary(result)
	}
}

var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*NoOpLogger)(nil)
	_ Logger = (*MultiLogger)(nil)
)
