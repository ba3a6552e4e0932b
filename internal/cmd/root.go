package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for crewlocal
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crewlocal",
		Short: "Run multi-agent crews against local Ollama models",
		Long: `crewlocal runs crews of role-playing agents against models served by a
local Ollama instance.

Crews are described in YAML or Markdown files: a set of agents (role, goal,
backstory, model) and an ordered list of tasks assigned to them. Each task's
output can feed later tasks and be saved to disk.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .crewlocal/config.yaml)")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewModelsCommand())
	cmd.AddCommand(NewCacheCommand())

	return cmd
}
