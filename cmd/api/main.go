package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/brandcount/internal/config"
	"github.com/bryanwahyu/brandcount/internal/logging"
)

func main() {
	// .env opsional, env asli tetap menang
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// commands carrying this annotation only touch the database
const annotationStorageOnly = "storage-only"

type rootOptions struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "brandcount",
		Short:         "Extract brand mentions from text with a language model",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("config load error: %w", err)
			}
			validate := cfg.Validate
			if cmd.Annotations[annotationStorageOnly] == "true" {
				validate = cfg.ValidateStorage
			}
			if err := validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Level:      cfg.Log.Level,
				Format:     cfg.Log.Format,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
			})
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", path, "Path to the YAML config file")

	serveCmd := newServeCmd(opts)
	rootCmd.AddCommand(serveCmd, newMigrateCmd(opts), newExtractCmd(opts), newFailuresCmd(opts))
	// tanpa subcommand langsung serve HTTP
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	return rootCmd
}
