// Command instruct-agent runs chat agents defined by Lua instruction files
// against an OpenAI-compatible endpoint, serving each one through a local
// web chat widget.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "instruct-agent",
		Short:         "Run instruction-defined chat agents against a local LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("agents-dir", "d", "agents", "directory containing agent definition files")
	root.AddCommand(newLaunchCmd(), newListCmd(), newInfoCmd(), newConfigCmd())

	if err := root.Execute(); err != nil {
		log.Printf("[Launcher] Error: %v", err)
		os.Exit(1)
	}
}

func agentsDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("agents-dir")
	return dir
}
