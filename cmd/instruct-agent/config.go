package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	instructagent "github.com/instructware/instruct-agent-go"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and probe the LLM endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd)
		},
	}
}

func runConfig(cmd *cobra.Command) error {
	cfg := instructagent.NewConfigFromEnv()
	cmd.Println(cfg.Summary())

	client := instructagent.NewChatClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models, err := client.Models(ctx)
	if err != nil {
		cmd.Printf("Endpoint: unreachable (%v)\n", err)
		return nil
	}
	cmd.Printf("Endpoint: reachable, %d models\n", len(models))
	for i, id := range models {
		if i == 5 {
			cmd.Printf("  ... and %d more\n", len(models)-5)
			break
		}
		cmd.Printf("  %s\n", id)
	}
	return nil
}
