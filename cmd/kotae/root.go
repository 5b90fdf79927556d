package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
)

const defaultConfigPath = "config.yaml"

// app carries the global flags shared by every command.
type app struct {
	configPath string
	envFile    string
	debug      bool
	output     string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "kotae",
		Short:         "Answer questions from your documents and repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path (defaults are used when it does not exist)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newServeCmd(a),
		newIngestCmd(a),
		newAddRepoCmd(a),
		newAskCmd(a),
		newRetrieveCmd(a),
		newStatusCmd(a),
		newIngestionsCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// load resolves the environment, config and logger for a command.
func (a *app) load() (*config.Config, *zap.Logger, error) {
	envFiles := []string{a.envFile}
	if dir := filepath.Dir(a.configPath); dir != "." {
		envFiles = append(envFiles, filepath.Join(dir, ".env"))
	}
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if a.debug {
		cfg.Debug = true
	}
	logger, err := utils.NewLogger(cfg.Debug, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", a.configPath), zap.String("data_dir", cfg.Storage.DataDir))
	return cfg, logger, nil
}

// open loads the config and initializes the components. Callers must Close them.
func (a *app) open() (*Components, error) {
	cfg, logger, err := a.load()
	if err != nil {
		return nil, err
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return comps, nil
}

func (a *app) format() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(a.output)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kotae version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kotae %s\n", version)
		},
	}
}
