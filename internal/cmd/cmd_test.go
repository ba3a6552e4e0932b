package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/crewlocal/internal/config"
	"github.com/harrison/crewlocal/internal/models"
)

// fakeOllama serves /api/tags and /api/generate, answering every generation
// with "answer from <model>".
type fakeOllama struct {
	*httptest.Server
	generations atomic.Int32
}

func newFakeOllama(t *testing.T) *fakeOllama {
	t.Helper()
	f := &fakeOllama{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"qwen2.5:7b","size":4683087332},{"name":"llama3.1:8b","size":4920753328}]}`))
		case "/api/generate":
			f.generations.Add(1)
			var req struct {
				Model string `json:"model"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(map[string]any{"response": "answer from " + req.Model, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	t.Setenv(config.OllamaURLEnvVar, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`ollama:
  base_url: %s
  timeout: 5s
log_dir: %s
cache:
  path: %s
`, baseURL, filepath.Join(dir, "logs"), filepath.Join(dir, "cache.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeCrew(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(args ...string) (string, string, error) {
	return executeWithInput("", args...)
}

func executeWithInput(stdin string, args ...string) (string, string, error) {
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

const researchCrew = `name: research
cache: true
max_rpm: 600
estimated_time: 1-2 minutes
agents:
  - role: Senior Medical Technology Researcher
    goal: Deliver source-backed analysis
    temperature: 0.0
  - role: Editor
    goal: Tighten the report
    llm: ollama/llama3.1:8b
tasks:
  - name: research
    description: |
      Research 'The Future of AI in Healthcare'
      as of November 2025.
    expected_output: Brief report
    agent: Senior Medical Technology Researcher
    output_file: reports/ai_healthcare_2025.md
  - name: edit
    description: Edit the report
    agent: Editor
    context: [research]
    output_file: reports/final.md
`

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "crewlocal", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "validate", "check", "models", "cache"}, names)
}

func TestRunCommand(t *testing.T) {
	server := newFakeOllama(t)
	cfgPath := writeConfig(t, server.URL)
	crewPath := writeCrew(t, "research.yaml", researchCrew)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, stderr, err := execute("run", "--config", cfgPath, "--output-dir", outDir, crewPath)
	require.NoError(t, err, stderr)

	order := []string{
		"🚀 CREW EXECUTION STARTING",
		"👥 AGENTS (2):",
		"Senior Medical Technology Researcher",
		"📋 TASKS (2):",
		"Research 'The Future of AI in Healthcare' as of No",
		"• Process: Sequential",
		"• Model: ollama/qwen2.5:7b, ollama/llama3.1:8b",
		"• Cache: Enabled",
		"• Max RPM: 600",
		"⚠️  ESTIMATED TIME: 1-2 minutes",
		"⚙️  EXECUTING CREW",
		"✅ EXECUTION COMPLETE",
		"📄 RESULT:",
		"answer from llama3.1:8b",
		"📁 OUTPUTS SAVED",
		"✅ " + filepath.Join(outDir, "reports", "ai_healthcare_2025.md"),
		"📁 All files saved in " + outDir + "/",
	}
	pos := 0
	for _, want := range order {
		i := strings.Index(stdout[pos:], want)
		require.GreaterOrEqual(t, i, 0, "missing %q after offset %d in:\n%s", want, pos, stdout)
		pos += i + len(want)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "reports", "final.md"))
	require.NoError(t, err)
	assert.Equal(t, "answer from llama3.1:8b", string(data))
	assert.Equal(t, int32(2), server.generations.Load())
	assert.Contains(t, stderr, "Task 1/2 research")

	// Same crew again is served from the response cache.
	_, _, err = execute("run", "--config", cfgPath, "--output-dir", outDir, crewPath)
	require.NoError(t, err)
	assert.Equal(t, int32(2), server.generations.Load())

	stdout, _, err = execute("run", "--config", cfgPath, "--output-dir", outDir, "--no-cache", crewPath)
	require.NoError(t, err)
	assert.Equal(t, int32(4), server.generations.Load())
	assert.Contains(t, stdout, "• Cache: Disabled")
}

func TestRunCommand_ModelFlag(t *testing.T) {
	server := newFakeOllama(t)
	cfgPath := writeConfig(t, server.URL)
	crewPath := writeCrew(t, "crew.yaml", `agents:
  - role: Writer
    goal: Write
tasks:
  - name: draft
    description: Draft a haiku
    agent: Writer
`)

	stdout, _, err := execute("run", "--config", cfgPath, "--model", "ollama/mistral:7b", crewPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "• Model: ollama/mistral:7b")
	assert.Contains(t, stdout, "answer from mistral:7b")
	assert.NotContains(t, stdout, "OUTPUTS SAVED")
}

func TestRunCommand_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfgPath := writeConfig(t, url)
	crewPath := writeCrew(t, "crew.yaml", `agents:
  - role: Writer
    goal: Write
tasks:
  - name: draft
    description: Draft
    agent: Writer
`)

	_, _, err := execute("run", "--config", cfgPath, crewPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama serve")
}

func TestRunCommand_InvalidCrew(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1")
	crewPath := writeCrew(t, "crew.yaml", `agents:
  - role: Writer
    goal: Write
tasks:
  - name: draft
    description: Draft
    agent: Editor
`)

	stdout, _, err := execute("run", "--config", cfgPath, crewPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidCrew)
	assert.NotContains(t, stdout, "CREW EXECUTION STARTING")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1")
	valid := writeCrew(t, "valid.yaml", researchCrew)
	warned := writeCrew(t, "warned.md", `---
process: hierarchical
manager_llm: ollama/qwen2.5:7b
memory: true
---
## Agent: Researcher

**Goal**: Research
**Tools**: serper

## Task: research

**Agent**: Researcher

Research the topic.
`)
	invalid := writeCrew(t, "invalid.yaml", "agents: []\ntasks: []\n")

	stdout, _, err := execute("validate", "--config", cfgPath, valid, warned)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Crew "research" is valid`)
	assert.Contains(t, stdout, "Parsed 2 agents and 2 tasks (sequential process)")
	assert.Contains(t, stdout, "Output: reports/final.md")
	assert.Contains(t, stdout, `Crew "warned" is valid`)
	assert.Contains(t, stdout, "⚠️  Warning: 3 crew settings are not acted on")
	assert.Contains(t, stdout, "Suggestion:")
	assert.Contains(t, stdout, "Loading crew files:")
	assert.Contains(t, stdout, "[2/2]")
	assert.Contains(t, stdout, "✓ Loaded 2 crew files")

	stdout, _, err = execute("validate", "--config", cfgPath, valid)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Loading crew files:")

	stdout, _, err = execute("validate", "--config", cfgPath, valid, invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 crew files failed validation")
	assert.Contains(t, stdout, "invalid.yaml: Validation failed")
	assert.Contains(t, stdout, "at least one agent")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCrewFiles(t *testing.T) {
	path := writeCrew(t, "crew.yaml", "agents: []\ntasks: []\n")

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watchCrewFiles(ctx, []string{path}, "", &out, nil) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching 1 crew files")
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`agents:
  - role: Writer
    goal: Write
tasks:
  - name: draft
    description: Draft
    agent: Writer
`), 0644))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `Crew "crew" is valid`)
	}, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), path+" changed")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchCrewFiles_ReturnsLatestFailure(t *testing.T) {
	valid := writeCrew(t, "valid.yaml", researchCrew)
	invalid := writeCrew(t, "invalid.yaml", "agents: []\ntasks: []\n")
	paths := []string{valid, invalid}

	var out syncBuffer
	failures := validateCrewFiles(paths, "", &out)
	require.EqualError(t, failures.err(), "1 of 2 crew files failed validation")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchCrewFiles(ctx, paths, "", &out, failures) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching 2 crew files")
	}, 3*time.Second, 10*time.Millisecond)

	// Break the valid file too, so both are failing when the watch stops.
	require.NoError(t, os.WriteFile(valid, []byte("agents: []\ntasks: []\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), valid+" changed")
	}, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "Validation failed") >= 2
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.EqualError(t, err, "2 of 2 crew files failed validation")
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestCrewFailures(t *testing.T) {
	assert.NoError(t, crewFailures{}.err())
	assert.NoError(t, crewFailures{"a.yaml": false, "b.yaml": false}.err())
	assert.EqualError(t, crewFailures{"a.yaml": true, "b.yaml": false}.err(), "1 of 2 crew files failed validation")
}

func TestCheckCommand(t *testing.T) {
	server := newFakeOllama(t)
	cfgPath := writeConfig(t, server.URL)

	stdout, _, err := execute("check", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✅ Ollama is running")
	assert.Contains(t, stdout, "Available models: qwen2.5:7b, llama3.1:8b")
	assert.Contains(t, stdout, "answer from qwen2.5:7b")
	assert.Contains(t, stdout, "All checks passed")

	stdout, _, err = execute("check", "--config", cfgPath, "--model", "ollama/llama3.1:8b")
	require.NoError(t, err)
	assert.Contains(t, stdout, "answer from llama3.1:8b")
}

func TestCheckCommand_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	stdout, _, err := execute("check", "--config", writeConfig(t, url))
	require.Error(t, err)
	assert.Contains(t, stdout, "❌ Cannot connect to Ollama")
	assert.Contains(t, stdout, "ollama serve")
}

func TestModelsCommand(t *testing.T) {
	server := newFakeOllama(t)

	stdout, _, err := execute("models", "--config", writeConfig(t, server.URL))
	require.NoError(t, err)
	assert.Equal(t, "NAME         SIZE\nqwen2.5:7b   4.7 GB\nllama3.1:8b  4.9 GB\n", stdout)
}

func TestCacheCommands(t *testing.T) {
	server := newFakeOllama(t)
	cfgPath := writeConfig(t, server.URL)
	cachePath := filepath.Join(filepath.Dir(cfgPath), "cache.db")
	crewPath := writeCrew(t, "research.yaml", researchCrew)
	outDir := t.TempDir()

	stdout, _, err := execute("cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "No response cache found at: "+cachePath+"\n", stdout)

	_, _, err = execute("run", "--config", cfgPath, "--output-dir", outDir, crewPath)
	require.NoError(t, err)
	stdout, _, err = execute("cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Response cache: "+cachePath)
	assert.Contains(t, stdout, "Entries: 2")
	assert.Contains(t, stdout, "Hits:    0")

	_, _, err = execute("run", "--config", cfgPath, "--output-dir", outDir, crewPath)
	require.NoError(t, err)
	stdout, _, err = execute("cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Hits:    2")

	stdout, _, err = executeWithInput("n\n", "cache", "clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Continue? [y/N]")
	assert.Contains(t, stdout, "Operation cancelled.")

	stdout, _, err = executeWithInput("y\n", "cache", "clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleared 2 cached responses.")

	stdout, _, err = execute("cache", "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Entries: 0")

	stdout, _, err = execute("cache", "clear", "--yes", "--config", cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Continue?")
	assert.Contains(t, stdout, "Cleared 0 cached responses.")
}

func TestConfirmAction(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, tt.want, confirmAction(strings.NewReader(tt.input), &out))
			assert.Equal(t, "Continue? [y/N]: ", out.String())
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1500))
	assert.Equal(t, "4.7 GB", formatSize(4683087332))
}

func TestStartupOptions(t *testing.T) {
	crew := &models.Crew{
		Process:       models.ProcessHierarchical,
		Memory:        true,
		Cache:         true,
		Verbose:       true,
		EstimatedTime: "5-10 minutes",
	}

	opts := startupOptions(crew, false)
	assert.Equal(t, "Hierarchical", opts.Process)
	assert.True(t, opts.Memory)
	assert.True(t, opts.Cache)
	assert.True(t, opts.Verbose)
	assert.Nil(t, opts.MaxRPM)
	assert.Equal(t, "5-10 minutes", opts.EstimatedTime)

	crew.MaxRPM = 60
	opts = startupOptions(crew, true)
	require.NotNil(t, opts.MaxRPM)
	assert.Equal(t, 60, *opts.MaxRPM)
	assert.False(t, opts.Cache)
}

func TestSavedDir(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "", savedDir(cfg, nil))
	assert.Equal(t, "outputs", savedDir(cfg, []string{"outputs/a.md", "outputs/b.md"}))
	assert.Equal(t, "", savedDir(cfg, []string{"outputs/a.md", "reports/b.md"}))
	assert.Equal(t, "", savedDir(cfg, []string{"a.md"}))

	cfg.OutputDir = "launch/"
	assert.Equal(t, "launch", savedDir(cfg, []string{"x/a.md"}))
}
