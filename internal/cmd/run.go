package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/crewlocal/internal/cache"
	"github.com/harrison/crewlocal/internal/config"
	"github.com/harrison/crewlocal/internal/display"
	"github.com/harrison/crewlocal/internal/engine"
	"github.com/harrison/crewlocal/internal/logger"
	"github.com/harrison/crewlocal/internal/models"
	"github.com/harrison/crewlocal/internal/ollama"
	"github.com/harrison/crewlocal/internal/parser"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <crew-file>",
		Short: "Run a crew",
		Long: `Run every task of a crew in order against the local Ollama server.

The crew file (Markdown or YAML) is parsed and validated, a startup banner
lists its agents, tasks and configuration, and each task's output is saved
to its output_file once the model answers.

Configuration is loaded from .crewlocal/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  crewlocal run examples/01_basic_agent.yaml
  crewlocal run --model ollama/llama3.1:8b examples/02_multi_agent.md
  crewlocal run --output-dir launch examples/03_advanced_orchestration.yaml
  crewlocal run --no-cache --verbose crew.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("model", "", "Model for agents that do not name one (e.g. ollama/qwen2.5:7b)")
	cmd.Flags().Duration("timeout", 0, "Per-request timeout for the model server (e.g. 10m)")
	cmd.Flags().Bool("verbose", false, "Show detailed execution information")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().String("output-dir", "", "Directory prefixed to task output files")
	cmd.Flags().Bool("no-cache", false, "Ignore the response cache even if the crew enables it")
	cmd.Flags().Bool("interactive", false, "Ask for feedback on human_input tasks (default: on when stdin is a terminal)")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	crew, err := loadCrew(args[0], cfg.DefaultModel)
	if err != nil {
		return err
	}

	consoleLog := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()
	log := logger.NewMultiLogger(consoleLog, fileLog)

	runner := engine.NewRunner(ollama.NewClient(cfg.Ollama), log)
	runner.DefaultModel = cfg.DefaultModel
	runner.OutputDir = cfg.OutputDir

	noCache, _ := cmd.Flags().GetBool("no-cache")
	if crew.Cache && !noCache {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			log.LogWarn(fmt.Sprintf("response cache disabled: %v", err))
		} else {
			defer store.Close()
			runner.Cache = store
		}
	}

	if interactive(cmd) {
		runner.Reviewer = engine.NewPromptReviewer(cmd.InOrStdin(), cmd.OutOrStdout())
	} else if hasHumanInput(crew) {
		log.LogWarn("human_input tasks are accepted without review; pass --interactive to review them")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := display.NewReporter(cmd.OutOrStdout())
	reporter.PrintCrewStartup(crew.AgentRoles(), crew.TaskDescriptions(), crew.Model(), startupOptions(crew, noCache))
	reporter.PrintExecutionStart()

	start := time.Now()
	result, err := runner.Kickoff(ctx, crew)
	if err != nil {
		if errors.Is(err, ollama.ErrUnavailable) {
			return fmt.Errorf("crew run failed: %w (make sure Ollama is running: ollama serve)", err)
		}
		if errors.Is(err, context.Canceled) && result != nil {
			return fmt.Errorf("crew run interrupted after %d of %d tasks", len(result.Tasks), len(crew.Tasks))
		}
		return fmt.Errorf("crew run failed: %w", err)
	}

	reporter.PrintExecutionComplete(start, result)
	if files := result.OutputFiles(); len(files) > 0 {
		reporter.PrintOutputsSaved(files, savedDir(cfg, files))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Log file: %s\n", fileLog.RunFile())
	return nil
}

// loadCrew parses path and fills in defaults so the banner and the runner
// see the same crew.
func loadCrew(path, defaultModel string) (*models.Crew, error) {
	crew, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew file: %w", err)
	}
	if err := crew.Normalize(defaultModel); err != nil {
		return nil, err
	}
	if err := crew.Validate(); err != nil {
		return nil, err
	}
	return crew, nil
}

// startupOptions projects the crew settings shown in the startup banner.
func startupOptions(crew *models.Crew, noCache bool) display.StartupOptions {
	opts := display.StartupOptions{
		Process:       crew.Process.Title(),
		Memory:        crew.Memory,
		Cache:         crew.Cache && !noCache,
		Verbose:       crew.Verbose,
		EstimatedTime: crew.EstimatedTime,
	}
	if crew.MaxRPM > 0 {
		rpm := crew.MaxRPM
		opts.MaxRPM = &rpm
	}
	return opts
}

// savedDir names the directory the outputs landed in: the configured output
// dir, or the directory every file shares. "" when they are spread out.
func savedDir(cfg *config.Config, files []string) string {
	if cfg.OutputDir != "" {
		return filepath.Clean(cfg.OutputDir)
	}
	if len(files) == 0 {
		return ""
	}
	dir := filepath.Dir(files[0])
	for _, f := range files[1:] {
		if filepath.Dir(f) != dir {
			return ""
		}
	}
	if dir == "." {
		return ""
	}
	return dir
}

func hasHumanInput(crew *models.Crew) bool {
	for _, t := range crew.Tasks {
		if t.HumanInput {
			return true
		}
	}
	return false
}

// interactive honors --interactive when given and otherwise reviews only
// when stdin is a terminal.
func interactive(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("interactive") {
		on, _ := cmd.Flags().GetBool("interactive")
		return on
	}
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
