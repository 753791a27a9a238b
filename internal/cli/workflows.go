package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/colinrozzi/git-chat-assistant/internal/workflow"
)

func newWorkflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List the available automated workflows",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, tag := range workflow.AllTags {
				d, ok := workflow.Lookup(tag)
				if !ok {
					continue
				}
				fmt.Printf("%s\n    %s\n", d.Tag, d.Instruction)
			}
		},
	}
}
