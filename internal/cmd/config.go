package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/crewlocal/internal/config"
)

// loadConfig reads the file named by --config, or .crewlocal/config.yaml,
// and applies the flags the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var modelPtr, logDirPtr, outputDirPtr *string
	var timeoutPtr *time.Duration
	var verbosePtr *bool

	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		model, _ := cmd.Flags().GetString("model")
		modelPtr = &model
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		timeoutPtr = &timeout
	}
	if f := cmd.Flags().Lookup("log-dir"); f != nil && f.Changed {
		logDir, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &logDir
	}
	if f := cmd.Flags().Lookup("output-dir"); f != nil && f.Changed {
		outputDir, _ := cmd.Flags().GetString("output-dir")
		outputDirPtr = &outputDir
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed {
		verbose, _ := cmd.Flags().GetBool("verbose")
		verbosePtr = &verbose
	}

	cfg.MergeWithFlags(modelPtr, timeoutPtr, logDirPtr, outputDirPtr, verbosePtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
