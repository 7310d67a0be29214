package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aalex954/applocate-sub001/configs"
	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/config"
	"github.com/aalex954/applocate-sub001/internal/output"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/applocate/config.yaml)
  3. Environment variables (APPLOCATE_*)
  4. Command-line flags`,
		Example: `  # Create user config from template
  applocate config init

  # Show effective configuration
  applocate config show --json

  # Print user config file path
  applocate config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(a.newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	// Repair commands must work with a broken config file.
	for _, sub := range cmd.Commands() {
		if sub.Name() != "show" {
			sub.Annotations = map[string]string{skipConfigAnnotation: "true"}
		}
	}
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from the built-in template at
~/.config/applocate/config.yaml (or $XDG_CONFIG_HOME/applocate/config.yaml).

With --force an existing file is backed up before it is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Back up and overwrite an existing configuration")
	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	var backupPath string
	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("", "Location: %s", configPath)
			out.Status("", "Use --force to back it up and start from the template")
			return nil
		}
		var err error
		if backupPath, err = config.Backup(configPath); err != nil {
			return alerrors.ConfigError("failed to back up configuration", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return alerrors.ConfigError("failed to create config directory", err).
			WithDetail("path", filepath.Dir(configPath))
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return alerrors.ConfigError("failed to write config file", err).WithDetail("path", configPath)
	}

	out.Success("Created user configuration")
	out.Statusf("", "Location: %s", configPath)
	if backupPath != "" {
		out.Statusf("", "Backup: %s", backupPath)
	}
	return nil
}

func (a *app) newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging defaults, the user file and the environment.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return alerrors.InternalError("failed to encode configuration", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the user config from a backup",
		Long: `Restore the user configuration from a backup made by 'config init --force'.
Without an argument the newest backup is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			configPath := config.GetUserConfigPath()
			backups, err := config.ListBackups(configPath)
			if err != nil {
				return alerrors.ConfigError("failed to list backups", err)
			}

			if list {
				for _, b := range backups {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), b)
				}
				return nil
			}

			var from string
			switch {
			case len(args) == 1:
				from = args[0]
			case len(backups) > 0:
				from = backups[0]
			default:
				return alerrors.New(alerrors.ErrCodeConfigNotFound, "no configuration backups found", nil).
					WithDetail("path", configPath)
			}

			if err := config.Restore(configPath, from); err != nil {
				return alerrors.ConfigError("failed to restore configuration", err).WithDetail("backup", from)
			}
			out.Successf("Restored %s", configPath)
			out.Statusf("", "From: %s", from)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List backups, newest first")
	return cmd
}
