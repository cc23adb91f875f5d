package instructagent

import (
	"time"

	"go.uber.org/atomic"
)

// AgentStats tracks per-process counters for the status endpoint. All
// counters are safe for concurrent use.
type AgentStats struct {
	StartedAt time.Time

	Sessions  atomic.Int64
	Turns     atomic.Int64
	LLMCalls  atomic.Int64
	ToolCalls atomic.Int64
	Errors    atomic.Int64
}

// NewAgentStats creates a zeroed stats block stamped with the start time.
func NewAgentStats() *AgentStats {
	return &AgentStats{StartedAt: time.Now()}
}

// Snapshot renders the counters for the status endpoint.
func (s *AgentStats) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.StartedAt).Seconds()),
		"sessions":       s.Sessions.Load(),
		"turns":          s.Turns.Load(),
		"llm_calls":      s.LLMCalls.Load(),
		"tool_calls":     s.ToolCalls.Load(),
		"errors":         s.Errors.Load(),
	}
}
