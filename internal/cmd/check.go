package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/crewlocal/internal/display"
	"github.com/harrison/crewlocal/internal/ollama"
)

// checkPrompt is the one-sentence generation used to prove a model answers.
const checkPrompt = "Say 'Hello, CrewAI!' in one sentence."

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the Ollama server is running and a model answers",
		Long: `Check lists the models installed on the Ollama server and runs one short
generation with the default model (or --model).

Exit code: 0 if both steps succeed, 1 otherwise`,
		Args: cobra.NoArgs,
		RunE: checkCommand,
	}

	cmd.Flags().String("model", "", "Model to test (default: default_model from config)")
	cmd.Flags().Duration("timeout", 0, "Per-request timeout for the model server (e.g. 30s)")

	return cmd
}

func checkCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	client := ollama.NewClient(cfg.Ollama)
	ctx := cmd.Context()

	fmt.Fprintln(out, "🧪 Testing Ollama connection...")
	models, err := client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(out, "❌ Cannot connect to Ollama: %v\n", err)
		fmt.Fprintln(out, "   Make sure Ollama is running: ollama serve")
		return fmt.Errorf("ollama check failed: %w", err)
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	fmt.Fprintln(out, "✅ Ollama is running")
	fmt.Fprintf(out, "   Available models: %s\n", strings.Join(names, ", "))

	fmt.Fprintln(out, "\n🧪 Testing model generation...")
	elapsed := display.NewTimer()
	answer, err := client.Generate(ctx, ollama.GenerateRequest{
		Model:  cfg.DefaultModel,
		Prompt: checkPrompt,
	})
	if err != nil {
		fmt.Fprintf(out, "❌ Generation failed: %v\n", err)
		return fmt.Errorf("generation check failed: %w", err)
	}

	fmt.Fprintf(out, "✅ Model responded in %s:\n", display.FormatElapsed(elapsed()))
	fmt.Fprintf(out, "   %s\n", strings.TrimSpace(answer))
	fmt.Fprintln(out, "\n✅ All checks passed! crewlocal is ready.")
	fmt.Fprintln(out, "   You can now run the example crews.")
	return nil
}
