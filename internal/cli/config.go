package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/incidents/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))
	cmd.AddCommand(newConfigListCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			prompt := func(label, def string) string {
				fmt.Fprintf(out, "%s [%s]: ", label, def)
				line, _ := reader.ReadString('\n')
				if line = strings.TrimSpace(line); line != "" {
					return line
				}
				return def
			}

			dbPath := prompt("Database path", a.viper.GetString("db.path"))
			roster := prompt("On-call roster (comma separated)", strings.Join(a.viper.GetStringSlice("oncall.roster"), ","))
			format := prompt("Default output format (table/json/yaml)", "table")

			if err := a.validator.ValidateVar(format, "oneof=table json yaml"); err != nil {
				return fmt.Errorf("invalid output format %q", format)
			}

			a.viper.Set("db.path", dbPath)
			a.viper.Set("oncall.roster", splitList(roster))
			a.viper.Set("output", format)

			path, err := a.writeConfig()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Configuration saved to %s\n", path)
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if key == "oncall.roster" {
				a.viper.Set(key, splitList(value))
			} else {
				a.viper.Set(key, value)
			}

			if _, err := a.writeConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			val := a.viper.Get(args[0])
			if val == nil {
				fmt.Fprintf(out, "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(out, "%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			keys := a.viper.AllKeys()
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(out, "%s: %v\n", key, a.viper.Get(key))
			}

			cfg := config.Default()
			if err := a.viper.Unmarshal(cfg); err == nil {
				if err := cfg.Validate(); err != nil {
					fmt.Fprintf(out, "\nwarning: %v\n", err)
				}
			}
			return nil
		},
	}
}

// writeConfig saves the settings to the file in use, or to the default
// location when none was read.
func (a *app) writeConfig() (string, error) {
	path := a.viper.ConfigFileUsed()
	if path == "" {
		path = a.cfgFile
	}
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := a.viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
