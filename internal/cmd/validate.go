package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harrison/crewlocal/internal/config"
	"github.com/harrison/crewlocal/internal/display"
	"github.com/harrison/crewlocal/internal/models"
	"github.com/harrison/crewlocal/internal/watch"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <crew-file>...",
		Short: "Validate one or more crew files",
		Long: `Parse and validate crew files, checking for:
  - Agents with a role and a goal
  - Tasks with a name, a description and a known agent
  - Context that only names earlier tasks
  - Output files shared by two tasks
  - Hierarchical crews without manager_llm

Settings the local runner accepts but does not act on (tools, memory,
delegation, async tasks) are reported as warnings.

With --watch, the files are validated again every time they are saved
until interrupted.

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			failures := validateCrewFiles(args, cfg.DefaultModel, cmd.OutOrStdout())
			if on, _ := cmd.Flags().GetBool("watch"); !on {
				return failures.err()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchCrewFiles(ctx, args, cfg.DefaultModel, cmd.OutOrStdout(), failures)
		},
	}

	cmd.Flags().Bool("watch", false, "Validate again whenever a crew file changes")

	return cmd
}

// crewFailures records whether the latest validation of each crew file failed.
type crewFailures map[string]bool

func (f crewFailures) err() error {
	failed := 0
	for _, bad := range f {
		if bad {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crew files failed validation", failed, len(f))
	}
	return nil
}

// watchCrewFiles revalidates each file as it changes until ctx is done, then
// returns the error for whichever files are still failing. failures holds the
// results of the initial validation and may be nil.
func watchCrewFiles(ctx context.Context, paths []string, defaultModel string, output io.Writer, failures crewFailures) error {
	if defaultModel == "" {
		defaultModel = config.DefaultModel
	}
	if failures == nil {
		failures = make(crewFailures, len(paths))
	}
	for _, path := range paths {
		if _, ok := failures[path]; !ok {
			failures[path] = false
		}
	}

	w, err := watch.New(paths)
	if err != nil {
		return fmt.Errorf("failed to watch crew files: %w", err)
	}
	defer w.Close()

	fmt.Fprintf(output, "\n👀 Watching %d crew files for changes (Ctrl+C to stop)\n", len(paths))
	for {
		select {
		case <-ctx.Done():
			return failures.err()
		case path := <-w.Events():
			fmt.Fprintf(output, "\n🔄 %s changed\n", path)
			failures[path] = validateCrew(path, defaultModel, output) != nil
		case err := <-w.Errors():
			fmt.Fprintf(output, "watch error: %v\n", err)
		}
	}
}

// maxParallelParses bounds how many crew files are parsed at once.
const maxParallelParses = 8

// validateCrewFiles validates every path, reporting each one in the order
// given. Files are parsed concurrently; with more than one file a progress
// line is printed as each finishes loading.
func validateCrewFiles(paths []string, defaultModel string, output io.Writer) crewFailures {
	if defaultModel == "" {
		defaultModel = config.DefaultModel
	}

	crews := make([]*models.Crew, len(paths))
	errs := make([]error, len(paths))

	var progress *display.ProgressIndicator
	if len(paths) > 1 {
		progress = display.NewProgressIndicator(output, len(paths))
		progress.Start()
	}

	var g errgroup.Group
	g.SetLimit(maxParallelParses)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			crews[i], errs[i] = loadCrew(path, defaultModel)
			if progress != nil {
				progress.Step(path)
			}
			return nil
		})
	}
	_ = g.Wait()
	if progress != nil {
		progress.Complete()
	}

	failures := make(crewFailures, len(paths))
	for i, path := range paths {
		failures[path] = failures[path] || errs[i] != nil
		reportCrew(path, crews[i], errs[i], output)
	}
	return failures
}

func validateCrew(path, defaultModel string, output io.Writer) error {
	crew, err := loadCrew(path, defaultModel)
	reportCrew(path, crew, err, output)
	return err
}

func reportCrew(path string, crew *models.Crew, err error, output io.Writer) {
	if err != nil {
		fmt.Fprintf(output, "✗ %s: Validation failed\n", path)
		fmt.Fprintf(output, "  %v\n", err)
		return
	}

	fmt.Fprintf(output, "✓ %s: Crew %q is valid\n", path, crew.Name)
	fmt.Fprintf(output, "  Parsed %d agents and %d tasks (%s process)\n", len(crew.Agents), len(crew.Tasks), crew.Process)
	fmt.Fprintf(output, "  Model: %s\n", crew.Model())
	for _, f := range crew.OutputFiles() {
		fmt.Fprintf(output, "  Output: %s\n", f)
	}

	if warnings := crew.Warnings(); len(warnings) > 0 {
		warning := display.Warning{
			Title:      fmt.Sprintf("%d crew settings are not acted on", len(warnings)),
			Message:    "The local runner accepts these settings but ignores them:",
			Items:      warnings,
			Suggestion: "Remove them or keep them for compatibility with other runners",
		}
		warning.Display(output)
	}
}
