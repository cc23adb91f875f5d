package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	instructagent "github.com/instructware/instruct-agent-go"
	"github.com/instructware/instruct-agent-go/channel/web"
	"github.com/instructware/instruct-agent-go/store"
)

const shutdownTimeout = 5 * time.Second

func newLaunchCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "launch <agent-id>",
		Short: "Load an agent definition and serve its chat widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(args[0], agentsDir(cmd), host, port)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "interface to bind the widget on")
	cmd.Flags().IntVar(&port, "port", 7860, "first port to try for the widget")
	return cmd
}

func runLaunch(agentID, dir, host string, port int) error {
	cfg := instructagent.NewConfigFromEnv()
	catalog := instructagent.NewAgentCatalog(dir)

	meta, err := catalog.Metadata(agentID)
	if err != nil {
		return fmt.Errorf("agent %q: %w", agentID, err)
	}
	log.Printf("[Launcher] Loading agent: %s", meta.Name)
	log.Printf("[Launcher] Expertise: %s", meta.Expertise)
	log.Printf("[Launcher] Task: %s", meta.Task)

	if !catalog.Validate(agentID) {
		return fmt.Errorf("agent %q has no %s factory", agentID, "create_agent")
	}

	loader := instructagent.NewAgentLoader(dir)
	defer loader.Close()
	program, err := loader.Load(agentID)
	if err != nil {
		return fmt.Errorf("load agent %q: %w", agentID, err)
	}
	blueprint, err := program.CreateAgent(meta)
	if err != nil {
		return fmt.Errorf("create agent %q: %w", agentID, err)
	}

	client := instructagent.NewChatClient(cfg)
	if blueprint.Temperature != nil {
		client = client.WithTemperature(*blueprint.Temperature)
	}
	ctx := context.Background()
	if err := client.CheckConnection(ctx); err != nil {
		log.Printf("[Launcher] Warning: LLM endpoint not reachable: %v", err)
		log.Printf("[Launcher] Chat turns will fail until %s is up", cfg.APIBase)
	}

	memStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agent := instructagent.NewInstructAgent(meta, blueprint, cfg, client.LLMFunc(), memStore)
	if cfg.Verbose {
		agent.Use(instructagent.TurnLogMiddleware())
	}
	log.Printf("[Launcher] Agent type: %s", cfg.AgentType)
	log.Printf("[Launcher] Tools: %v", agent.Tools().Names())
	log.Printf("[Launcher] Max iterations: %d", agent.MaxTurns())

	registry := instructagent.NewAgentRegistry()
	registry.Register(agent)

	chosen, err := web.FindAvailablePort(port)
	if err != nil {
		return err
	}
	if chosen != port {
		log.Printf("[Launcher] Port %d busy, using %d", port, chosen)
	}

	server := web.NewServer(registry, catalog, memStore, cfg, web.ServerConfig{
		Host:    host,
		Port:    chosen,
		AgentID: agentID,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("widget server: %w", err)
		}
	case sig := <-sigCh:
		log.Printf("[Launcher] Received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// openStore picks the session backend: Redis when REDIS_ADDR is set,
// otherwise in-memory.
func openStore(ctx context.Context, cfg *instructagent.Config) (instructagent.MemoryStore, func(), error) {
	if cfg.RedisAddr == "" {
		return instructagent.NewInMemoryMemoryStore(), func() {}, nil
	}
	rs, err := store.Open(ctx, store.Config{Addr: cfg.RedisAddr})
	if err != nil {
		return nil, nil, fmt.Errorf("redis store: %w", err)
	}
	log.Printf("[Launcher] Sessions persisted to redis at %s", cfg.RedisAddr)
	return rs, func() { rs.Close() }, nil
}
