package cli

import (
	"github.com/spf13/cobra"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git-chat-assistant",
		Short: "Git-aware AI chat proxy",
		Long: "git-chat-assistant fronts a chat-state engine with git-domain defaults: " +
			"it merges inbound configuration, composes a git-focused system prompt, " +
			"spawns the engine, and relays messages to it.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Settings = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default ~/.git-chat-assistant/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newWorkflowsCmd())
	cmd.AddCommand(newAuditCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
