package main

import (
	"fmt"

	"github.com/spf13/cobra"

	instructagent "github.com/instructware/instruct-agent-go"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <agent-id>",
		Short: "Show the metadata of one agent definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, agentsDir(cmd), args[0])
		},
	}
}

func runInfo(cmd *cobra.Command, dir, agentID string) error {
	catalog := instructagent.NewAgentCatalog(dir)
	meta, err := catalog.Metadata(agentID)
	if err != nil {
		return fmt.Errorf("agent %q: %w", agentID, err)
	}
	cmd.Println(meta.String())
	if catalog.Validate(agentID) {
		cmd.Println("Valid: yes")
	} else {
		cmd.Println("Valid: no (missing create_agent factory)")
	}
	return nil
}
