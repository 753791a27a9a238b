package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings and preview payload merging",
	}

	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigMergeCmd())

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(paths.Settings)
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(paths.Settings)
			if err != nil {
				return err
			}
			issues := config.ValidateSettings(&settings)
			if len(issues) == 0 {
				fmt.Println("settings OK")
				return nil
			}
			for _, issue := range issues {
				fmt.Println(issue.String())
			}
			return fmt.Errorf("%d issue(s) found", len(issues))
		},
	}
}

func newConfigMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [payload-file]",
		Short: "Show the merged configuration for a payload",
		Long: "Merges the given payload (JSON or YAML) with the git-domain defaults " +
			"and prints the resulting configuration. With no argument, prints the " +
			"pure defaults.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var partial config.PartialConfig
			if len(args) == 1 {
				var err error
				partial, err = config.LoadPartial(args[0])
				if err != nil {
					return err
				}
			}

			merged, err := config.Merge(partial)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(merged)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}
