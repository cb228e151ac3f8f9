package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kolkov/calltrace/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the calltrace configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default " + config.FileName + " to the config directory",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if err := confirmWrite(filepath.Join(configDir, config.FileName), settings.AssumeYes); err != nil {
		return err
	}
	path, err := config.DefaultConfig().Save(configDir)
	if err != nil {
		return err
	}
	status(successColor, "Config written: %s", path)
	return nil
}
