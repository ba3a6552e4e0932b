package cmd

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/harrison/crewlocal/internal/ollama"
)

// NewModelsCommand creates the models command
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			models, err := ollama.NewClient(cfg.Ollama).ListModels(ctx)
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintln(out, "No models installed. Pull one with: ollama pull qwen2.5:7b")
				return nil
			}

			width := len("NAME")
			for _, m := range models {
				if w := runewidth.StringWidth(m.Name); w > width {
					width = w
				}
			}
			fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight("NAME", width), "SIZE")
			for _, m := range models {
				fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(m.Name, width), formatSize(m.Size))
			}
			return nil
		},
	}
}

// formatSize renders bytes as "4.7 GB" using decimal units, as ollama list does.
func formatSize(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
