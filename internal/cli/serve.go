package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/engine"
	"github.com/colinrozzi/git-chat-assistant/internal/gateway"
	"github.com/colinrozzi/git-chat-assistant/internal/hooks"
	"github.com/colinrozzi/git-chat-assistant/internal/proxy"
	"github.com/colinrozzi/git-chat-assistant/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port      int
		bind      string
		payload   string
		workflow  string
		directory string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Spawn the chat-state engine and serve the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(paths.Settings)
			if err != nil {
				return err
			}
			if port != 0 {
				settings.Gateway.Port = port
			}
			if bind != "" {
				settings.Gateway.Bind = bind
			}

			issues := config.ValidateSettings(&settings)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("settings validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			partial, err := loadPayload(payload)
			if err != nil {
				return err
			}
			if workflow != "" {
				partial.Workflow = &workflow
			}
			if directory != "" {
				partial.CurrentDirectory = &directory
			}

			var auditor store.Auditor
			if settings.Store.Backend == "sqlite" {
				dbPath := settings.Store.Path
				if dbPath == "" {
					dbPath = filepath.Join(paths.Data, "git-chat-assistant.db")
				}
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening audit store: %w", err)
				}
				defer db.Close()
				auditor = store.NewSQLiteAuditor(db)
				log.Info().Str("path", dbPath).Msg("using SQLite audit store")
			} else {
				auditor = store.NewMemoryAuditor()
				log.Info().Msg("using in-memory audit store")
			}

			hookMgr := hooks.NewManager(log)

			launcher := engine.NewProcessLauncher(settings.Engine.Command, settings.Engine.Args, log)
			launcher.OnExit(func(id string, err error) {
				data := map[string]any{"engineId": id}
				if err != nil {
					data["error"] = err.Error()
				}
				hookMgr.Emit(context.Background(), hooks.EventChildExit, data)
			})

			prx, err := proxy.New(partial, launcher, log,
				proxy.WithAudit(auditor),
				proxy.WithHooks(hookMgr),
			)
			if err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := prx.Start(ctx); err != nil {
				return err
			}
			defer prx.Close()

			srv := gateway.New(settings, prx, log, gateway.WithHooks(hookMgr))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")
	cmd.Flags().StringVar(&payload, "payload", "", "path to a JSON or YAML configuration payload")
	cmd.Flags().StringVar(&workflow, "workflow", "", "workflow to auto-initiate (commit, review, rebase)")
	cmd.Flags().StringVar(&directory, "directory", "", "repository directory for the session")

	return cmd
}

// loadPayload reads the inbound partial configuration, or returns an empty
// one so defaults fully apply.
func loadPayload(path string) (config.PartialConfig, error) {
	if path == "" {
		return config.PartialConfig{}, nil
	}
	return config.LoadPartial(path)
}
