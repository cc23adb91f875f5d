package main

import (
	"fmt"

	"github.com/spf13/cobra"

	instructagent "github.com/instructware/instruct-agent-go"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agent definitions and whether each one is launchable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, agentsDir(cmd))
		},
	}
}

func runList(cmd *cobra.Command, dir string) error {
	catalog := instructagent.NewAgentCatalog(dir)
	ids, err := catalog.List()
	if err != nil {
		return fmt.Errorf("list agents in %s: %w", dir, err)
	}
	if len(ids) == 0 {
		cmd.Printf("No agent definitions found in %s\n", dir)
		return nil
	}

	valid := 0
	for _, id := range ids {
		marker := "ERROR"
		if catalog.Validate(id) {
			marker = "OK"
			valid++
		}
		meta, err := catalog.Metadata(id)
		if err != nil {
			cmd.Printf("  [%-5s] %s (unreadable: %v)\n", marker, id, err)
			continue
		}
		cmd.Printf("  [%-5s] %-24s %s (%s)\n", marker, id, meta.Name, meta.Expertise)
	}
	cmd.Printf("Summary: %d agents, %d valid, %d invalid\n", len(ids), valid, len(ids)-valid)
	return nil
}
