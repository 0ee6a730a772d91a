/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/savelayout/pkg/config"
	"github.com/ssargent/savelayout/pkg/di"
	"github.com/ssargent/savelayout/pkg/labels"
	"github.com/ssargent/savelayout/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

type configKey struct{}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "savelayout",
		Short: "Decode and edit Dragon Quest III save-state records",
		Long: `savelayout reads and writes the hero, party and inventory records of a
Dragon Quest III (SNES) work-RAM image through their fixed byte layouts.

Every edit is journaled so earlier states can be listed and restored.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("memory", "m", "", "Work-RAM image to open (overrides the config)")
	rootCmd.PersistentFlags().String("labels", "", "Build the memory map from a Mesen label file instead of the built-in one")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides the config)")

	rootCmd.AddCommand(
		newInitCmd(),
		newRegionsCmd(),
		newSchemaCmd(),
		newDecodeCmd(),
		newSetCmd(),
		newHistoryCmd(),
		newRestoreCmd(),
		newLabelsCmd(),
		newServeCmd(),
		newEditCmd(),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file when there is one, applies flag
// overrides and installs the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if memoryPath, _ := cmd.Flags().GetString("memory"); memoryPath != "" {
		cfg.Memory.Path = memoryPath
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	if labelsPath, _ := cmd.Flags().GetString("labels"); labelsPath != "" {
		res, err := labels.ParseFile(labelsPath)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			logger.Warn("label dropped", zap.String("detail", w))
		}
		m, err := res.Map()
		if err != nil {
			return fmt.Errorf("label file %s: %w", labelsPath, err)
		}
		container.SetMap(m)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
	return nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

// openSession opens the configured memory image. The caller closes it.
func openSession(cmd *cobra.Command) (*di.Session, error) {
	return container.OpenSession(cmd.Context(), configFrom(cmd))
}
