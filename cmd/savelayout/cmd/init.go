/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/config"
	"github.com/ssargent/savelayout/pkg/memory"
)

// WorkRAMSize is the size of SNES work RAM
const WorkRAMSize = 0x20000

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file and API key",
		Long: `Create a configuration file with a generated API key.

With --create-image a zeroed 128 KiB work-RAM image is written to the
memory path when none exists yet.

Examples:
  savelayout init --memory-path ./dq3.wram
  savelayout init --config ./savelayout.yaml --create-image --print-key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			memoryPath, _ := cmd.Flags().GetString("memory-path")
			force, _ := cmd.Flags().GetBool("force")
			createImage, _ := cmd.Flags().GetBool("create-image")
			printKey, _ := cmd.Flags().GetBool("print-key")

			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			out := cmd.OutOrStdout()
			if config.ConfigExists(configPath) && !force {
				fmt.Fprintf(out, "Configuration already exists at %s. Use --force to overwrite.\n", configPath)
				return nil
			}

			cfg, err := config.BootstrapConfig(configPath, memoryPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✅ Configuration created at %s\n", configPath)
			fmt.Fprintf(out, "Memory image: %s\n", cfg.Memory.Path)
			fmt.Fprintf(out, "Journal: %s\n", cfg.Journal.Dir)

			if createImage {
				created, err := createWorkRAM(cfg.Memory.Path)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(out, "Created %d-byte work-RAM image\n", WorkRAMSize)
				}
			}

			if printKey {
				fmt.Fprintf(out, "\n🔑 API key: %s\n", cfg.Server.APIKey)
			}
			return nil
		},
	}

	initCmd.Flags().String("memory-path", "", "Work-RAM image path to record in the config")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("create-image", false, "Create a zeroed work-RAM image if none exists")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
	return initCmd
}

// createWorkRAM creates a zeroed image unless path already exists
func createWorkRAM(path string) (bool, error) {
	if f, err := memory.OpenFile(path); err == nil {
		return false, f.Close()
	}
	f, err := memory.CreateFile(path, WorkRAMSize)
	if err != nil {
		return false, err
	}
	return true, f.Close()
}
