package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/crewlocal/internal/cache"
)

// NewCacheCommand creates the 'crewlocal cache' parent command
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
		Long: `Commands for the SQLite response cache used by crews with cache: true.

The cache lives at cache.path from the configuration
(default .crewlocal/cache.db).`,
	}

	cmd.AddCommand(newCacheStatsCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show response cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			output := cmd.OutOrStdout()

			if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
				fmt.Fprintf(output, "No response cache found at: %s\n", cfg.Cache.Path)
				return nil
			}

			store, err := cache.Open(cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("open response cache: %w", err)
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(output, "Response cache: %s\n", store.Path())
			fmt.Fprintf(output, "  Entries: %d\n", stats.Entries)
			fmt.Fprintf(output, "  Hits:    %d\n", stats.Hits)
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response",
		Long: `Delete every cached response. Asks for confirmation unless --yes is given.

Examples:
  crewlocal cache clear
  crewlocal cache clear --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			output := cmd.OutOrStdout()

			if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
				fmt.Fprintf(output, "No response cache found at: %s\n", cfg.Cache.Path)
				return nil
			}

			if !yes {
				fmt.Fprintf(output, "WARNING: This will delete ALL cached responses in %s.\n", cfg.Cache.Path)
				if !confirmAction(cmd.InOrStdin(), output) {
					fmt.Fprintln(output, "Operation cancelled.")
					return nil
				}
			}

			store, err := cache.Open(cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("open response cache: %w", err)
			}
			defer store.Close()

			deleted, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(output, "Cleared %d cached responses.\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// confirmAction asks "Continue? [y/N]" and reads the answer from in.
func confirmAction(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Continue? [y/N]: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
