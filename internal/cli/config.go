package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// secretKeys are masked when the whole configuration is printed.
var secretKeys = map[string]bool{"auth.token": true}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write the kytos-utils configuration stored at ~/.kytos/config.yaml.
Values in the file win over KYTOS_<SECTION>_<KEY> environment variables,
which win over the built-in defaults.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := env.cfg.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(env.out, "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value, or every value",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			fmt.Fprintln(env.out, env.cfg.Get(args[0]))
			return nil
		}
		for _, key := range env.cfg.Keys() {
			value := env.cfg.Get(key)
			if secretKeys[key] && value != "" {
				value = "********"
			}
			fmt.Fprintf(env.out, "%s = %s\n", key, value)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(env.out, env.cfg.Path())
		return nil
	},
}
