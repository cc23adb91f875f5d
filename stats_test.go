package instructagent

import (
	"sync"
	"testing"
)

func TestAgentStats_Snapshot(t *testing.T) {
	stats := NewAgentStats()
	stats.Sessions.Inc()
	stats.Turns.Add(3)
	stats.LLMCalls.Add(5)
	stats.ToolCalls.Add(2)

	snap := stats.Snapshot()
	if snap["sessions"] != int64(1) {
		t.Errorf("expected 1 session, got %v", snap["sessions"])
	}
	if snap["turns"] != int64(3) {
		t.Errorf("expected 3 turns, got %v", snap["turns"])
	}
	if snap["llm_calls"] != int64(5) {
		t.Errorf("expected 5 llm calls, got %v", snap["llm_calls"])
	}
	if snap["tool_calls"] != int64(2) {
		t.Errorf("expected 2 tool calls, got %v", snap["tool_calls"])
	}
	if snap["errors"] != int64(0) {
		t.Errorf("expected 0 errors, got %v", snap["errors"])
	}
	if _, ok := snap["uptime_seconds"].(int64); !ok {
		t.Errorf("expected uptime_seconds as int64, got %T", snap["uptime_seconds"])
	}
}

func TestAgentStats_ConcurrentIncrements(t *testing.T) {
	stats := NewAgentStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.Turns.Inc()
			stats.LLMCalls.Inc()
		}()
	}
	wg.Wait()

	if stats.Turns.Load() != 50 {
		t.Fatalf("expected 50 turns, got %d", stats.Turns.Load())
	}
	if stats.LLMCalls.Load() != 50 {
		t.Fatalf("expected 50 llm calls, got %d", stats.LLMCalls.Load())
	}
}
