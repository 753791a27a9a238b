package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/store"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the spawn and forward audit log",
	}

	cmd.AddCommand(newAuditSpawnsCmd())
	cmd.AddCommand(newAuditForwardsCmd())
	return cmd
}

func openAuditor() (*store.DB, store.Auditor, error) {
	settings, err := config.LoadSettings(paths.Settings)
	if err != nil {
		return nil, nil, err
	}
	if settings.Store.Backend != "sqlite" {
		return nil, nil, fmt.Errorf("audit history requires the sqlite store backend, got %q", settings.Store.Backend)
	}
	dbPath := settings.Store.Path
	if dbPath == "" {
		dbPath = filepath.Join(paths.Data, "git-chat-assistant.db")
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, nil, err
	}
	return db, store.NewSQLiteAuditor(db), nil
}

func newAuditSpawnsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "spawns",
		Short: "List recent engine spawns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, auditor, err := openAuditor()
			if err != nil {
				return err
			}
			defer db.Close()

			spawns, err := auditor.Spawns(limit)
			if err != nil {
				return err
			}
			for _, s := range spawns {
				status := "ok"
				if !s.Success {
					status = "failed: " + s.Error
				}
				fmt.Printf("%s  proxy=%s child=%s workflow=%q %s\n",
					s.CreatedAt.Format("2006-01-02 15:04:05"), s.ProxyID, s.ChildID, s.Workflow, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")
	return cmd
}

func newAuditForwardsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "forwards",
		Short: "List recently forwarded messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, auditor, err := openAuditor()
			if err != nil {
				return err
			}
			defer db.Close()

			forwards, err := auditor.Forwards(limit)
			if err != nil {
				return err
			}
			for _, f := range forwards {
				line := fmt.Sprintf("%s  proxy=%s message=%s kind=%s outcome=%s",
					f.CreatedAt.Format("2006-01-02 15:04:05"), f.ProxyID, f.MessageID, f.Kind, f.Outcome)
				if f.Error != "" {
					line += " error=" + f.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")
	return cmd
}
