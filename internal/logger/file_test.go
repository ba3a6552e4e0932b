package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/crewlocal/internal/models"
)

func TestNewFileLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	fl, err := NewFileLogger(logDir, "info")
	require.NoError(t, err)
	defer fl.Close()

	assert.Regexp(t, `run-\d{8}-\d{6}\.log$`, fl.RunFile())
	assert.DirExists(t, filepath.Join(logDir, "tasks"))

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.RunFile()), target)
}

func TestFileLogger_RunLog(t *testing.T) {
	logDir := t.TempDir()
	fl, err := NewFileLogger(logDir, "info")
	require.NoError(t, err)

	task := models.Task{Name: "write article"}
	fl.LogDebug("hidden")
	fl.LogWarn("hierarchical process runs tasks in declared order")
	fl.LogTaskStart(2, 2, task, models.Agent{Role: "Writer", LLM: "ollama/llama3.1:8b"})
	fl.LogTaskComplete(2, 2, models.TaskOutput{
		Task:     task,
		Agent:    "Writer",
		Model:    "ollama/llama3.1:8b",
		Prompt:   "You are Writer.",
		Raw:      "The article.",
		Feedback: "Add a conclusion",
		Duration: 2 * time.Second,
	})
	fl.LogSummary(&models.Result{RunID: "abc", Crew: "writers", Tasks: []models.TaskOutput{{}}})
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.RunFile())
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "=== crewlocal Run Log ===\n"))
	assert.NotContains(t, content, "hidden")
	assert.Contains(t, content, "[WARN] hierarchical process runs tasks in declared order")
	assert.Contains(t, content, `Task 2/2 write article started: agent "Writer", model ollama/llama3.1:8b`)
	assert.Contains(t, content, "Task 2/2 write article complete: duration 2.0s")
	assert.Contains(t, content, "=== RUN SUMMARY ===")
	assert.Contains(t, content, "Run ID:       abc")

	taskLog, err := os.ReadFile(filepath.Join(logDir, "tasks", "02-write_article.log"))
	require.NoError(t, err)
	assert.Contains(t, string(taskLog), "=== Task 2: write article ===")
	assert.Contains(t, string(taskLog), "Prompt:\nYou are Writer.")
	assert.Contains(t, string(taskLog), "Reviewer Feedback:\nAdd a conclusion")
	assert.Contains(t, string(taskLog), "Output:\nThe article.")
}

func TestFileLogger_CloseTwice(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), "debug")
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	assert.NoError(t, fl.Close())
	fl.LogInfo("after close is ignored")
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "tech_docs", safeName("tech docs"))
	assert.Equal(t, "a_b_c.md", safeName("a/b:c.md"))
}
