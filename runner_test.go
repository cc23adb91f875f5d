package instructagent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ══════════════════════════════════════════════
// Test helpers
// ══════════════════════════════════════════════

var runnerMeta = AgentMetadata{
	Name: "Test Agent", Expertise: "Software Testing", Task: "Generate tests", AgentID: "test_agent",
}

// quietConfig keeps the tracer off and the loop small.
func quietConfig() *Config {
	return &Config{
		Model:         "test-model",
		MaxIterations: 3,
		HistoryWindow: 20,
	}
}

func makeFinalResp(content string) *LLMMessage {
	return &LLMMessage{Content: content}
}

func makeToolCallResp(calls []struct{ Name, Args string }, content string) *LLMMessage {
	var tcs []ToolCallInput
	for i, c := range calls {
		tc := ToolCallInput{ID: fmt.Sprintf("call_%d", i)}
		tc.Function.Name = c.Name
		tc.Function.Arguments = c.Args
		tcs = append(tcs, tc)
	}
	return &LLMMessage{Content: content, ToolCalls: tcs}
}

func newTestAgent(llm LLMFunc) *InstructAgent {
	return NewInstructAgent(runnerMeta, nil, quietConfig(), llm, NewInMemoryMemoryStore())
}

// ══════════════════════════════════════════════
// Core turn behavior
// ══════════════════════════════════════════════

func TestRespond_DirectAnswer(t *testing.T) {
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		return makeFinalResp("Hello!"), nil
	}
	agent := newTestAgent(llm)

	result, err := agent.Respond(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "Hello!" {
		t.Fatalf("expected Hello!, got %s", result.Output)
	}
	if result.TotalTurns != 1 {
		t.Fatalf("expected 1 turn, got %d", result.TotalTurns)
	}
	if result.ToolCallsCount != 0 {
		t.Fatal("expected 0 tool calls")
	}
	if result.StoppedReason != StopCompleted {
		t.Fatalf("expected completed, got %s", result.StoppedReason)
	}
}

func TestRespond_SingleToolCall(t *testing.T) {
	var sawToolResult bool
	callCount := 0
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		callCount++
		if callCount == 1 {
			return makeToolCallResp([]struct{ Name, Args string }{
				{"get_weather", `{"city":"Shanghai"}`},
			}, ""), nil
		}
		for _, m := range msgs {
			if m["role"] == "tool" && m["content"] == "Shanghai: 25C" {
				sawToolResult = true
			}
		}
		return makeFinalResp("Shanghai is 25C."), nil
	}

	agent := newTestAgent(llm)
	agent.Tools().Register(&Tool{
		Name:       "get_weather",
		Parameters: []ToolParam{{Name: "city", Type: "string", Required: true}},
		Handler: func(ctx *ToolContext, args map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf("%s: 25C", args["city"]), nil
		},
	})

	result, err := agent.Respond(context.Background(), "s1", "weather?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "Shanghai is 25C." {
		t.Fatalf("unexpected output: %s", result.Output)
	}
	if result.ToolCallsCount != 1 {
		t.Fatalf("expected 1 tool call, got %d", result.ToolCallsCount)
	}
	if result.TotalTurns != 2 {
		t.Fatalf("expected 2 turns, got %d", result.TotalTurns)
	}
	if !sawToolResult {
		t.Fatal("expected the follow-up completion to see the tool result")
	}
}

func TestRespond_ToolErrorContinuesTurn(t *testing.T) {
	callCount := 0
	var toolMsg string
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		callCount++
		if callCount == 1 {
			return makeToolCallResp([]struct{ Name, Args string }{
				{"flaky", `{"input":"x"}`},
			}, ""), nil
		}
		for _, m := range msgs {
			if m["role"] == "tool" {
				toolMsg, _ = m["content"].(string)
			}
		}
		return makeFinalResp("recovered"), nil
	}

	agent := newTestAgent(llm)
	agent.Tools().Register(&Tool{
		Name: "flaky",
		Handler: func(ctx *ToolContext, args map[string]interface{}) (interface{}, error) {
			return nil, errors.New("backend down")
		},
	})

	result, err := agent.Respond(context.Background(), "s1", "go")
	if err != nil {
		t.Fatalf("a failing tool must not fail the turn: %v", err)
	}
	if result.Output != "recovered" {
		t.Fatalf("expected recovered, got %s", result.Output)
	}
	if !strings.Contains(toolMsg, "backend down") {
		t.Fatalf("expected error text fed back, got %q", toolMsg)
	}
	if result.Turns[0].ToolCalls[0].Error == "" {
		t.Fatal("expected the record to carry the tool error")
	}
}

func TestRespond_MaxTurnsReached(t *testing.T) {
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		return makeToolCallResp([]struct{ Name, Args string }{
			{"test_agent_tool", `{"input":"again"}`},
		}, ""), nil
	}
	agent := newTestAgent(llm)

	result, err := agent.Respond(context.Background(), "s1", "loop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StoppedReason != StopMaxTurns {
		t.Fatalf("expected max_turns_reached, got %s", result.StoppedReason)
	}
	if result.TotalTurns != 3 {
		t.Fatalf("expected 3 turns, got %d", result.TotalTurns)
	}
	if result.Output != maxTurnsNotice {
		t.Fatalf("expected the turn-limit notice, got %q", result.Output)
	}
}

func TestRespond_MaxTurnsKeepsLastContent(t *testing.T) {
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		return makeToolCallResp([]struct{ Name, Args string }{
			{"test_agent_tool", `{"input":"x"}`},
		}, "partial thought"), nil
	}
	agent := newTestAgent(llm)

	result, err := agent.Respond(context.Background(), "s1", "loop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "partial thought" {
		t.Fatalf("expected last content kept, got %q", result.Output)
	}
}

func TestRespond_LLMError(t *testing.T) {
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		return nil, errors.New("connection refused")
	}
	agent := newTestAgent(llm)

	result, err := agent.Respond(context.Background(), "s1", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "llm call failed") {
		t.Fatalf("expected wrap, got %v", err)
	}
	if result == nil || result.StoppedReason != StopLLMError {
		t.Fatalf("expected llm_error result, got %+v", result)
	}
	if agent.Stats().Errors.Load() != 1 {
		t.Fatalf("expected 1 error counted, got %d", agent.Stats().Errors.Load())
	}
}

func TestRespond_PanicRecovered(t *testing.T) {
	callCount := 0
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		callCount++
		if callCount == 1 {
			return makeToolCallResp([]struct{ Name, Args string }{
				{"boom", `{}`},
			}, ""), nil
		}
		return makeFinalResp("never"), nil
	}
	agent := newTestAgent(llm)
	agent.Tools().Register(&Tool{
		Name: "boom",
		Handler: func(ctx *ToolContext, args map[string]interface{}) (interface{}, error) {
			panic("tool exploded")
		},
	})

	_, err := agent.Respond(context.Background(), "s1", "go")
	if err == nil {
		t.Fatal("expected panic turned into error")
	}
	if !strings.Contains(err.Error(), "turn panicked") {
		t.Fatalf("expected panic wrap, got %v", err)
	}
}

// ══════════════════════════════════════════════
// Session memory
// ══════════════════════════════════════════════

func TestRespond_HistoryCarriesAcrossTurns(t *testing.T) {
	var secondTurnMsgs []map[string]interface{}
	callCount := 0
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		callCount++
		if callCount == 2 {
			secondTurnMsgs = msgs
		}
		return makeFinalResp(fmt.Sprintf("answer-%d", callCount)), nil
	}
	agent := newTestAgent(llm)

	if _, err := agent.Respond(context.Background(), "s1", "first question"); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := agent.Respond(context.Background(), "s1", "second question"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	if len(secondTurnMsgs) != 4 {
		t.Fatalf("expected system+2 history+user, got %d messages", len(secondTurnMsgs))
	}
	if secondTurnMsgs[0]["role"] != "system" {
		t.Fatal("expected system message first")
	}
	if secondTurnMsgs[1]["content"] != "first question" || secondTurnMsgs[2]["content"] != "answer-1" {
		t.Fatalf("expected prior turn replayed, got %v", secondTurnMsgs)
	}
	if secondTurnMsgs[3]["content"] != "second question" {
		t.Fatalf("expected current input last, got %v", secondTurnMsgs[3])
	}
}

func TestRespond_SessionsDoNotShareHistory(t *testing.T) {
	var lastMsgs []map[string]interface{}
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		lastMsgs = msgs
		return makeFinalResp("ok"), nil
	}
	agent := newTestAgent(llm)

	agent.Respond(context.Background(), "s1", "in session one")
	agent.Respond(context.Background(), "s2", "in session two")

	if len(lastMsgs) != 2 {
		t.Fatalf("expected fresh session context, got %d messages", len(lastMsgs))
	}
}

// ══════════════════════════════════════════════
// Defaults and blueprint wiring
// ══════════════════════════════════════════════

func TestNewInstructAgent_Defaults(t *testing.T) {
	agent := newTestAgent(nil)

	if want := "Hello! I'm Test Agent. I specialize in Software Testing. How can I help you today?"; agent.Greeting() != want {
		t.Errorf("expected %q, got %q", want, agent.Greeting())
	}
	if !strings.Contains(agent.SystemPrompt(), "You are Test Agent, an expert in Software Testing.") {
		t.Errorf("unexpected system prompt: %q", agent.SystemPrompt())
	}
	if !strings.Contains(agent.SystemPrompt(), "test_agent_tool") {
		t.Errorf("expected tool names in prompt, got %q", agent.SystemPrompt())
	}
	if agent.MaxTurns() != 3 {
		t.Errorf("expected 3 from config, got %d", agent.MaxTurns())
	}
	if agent.Tools().Len() != 1 || agent.Tools().Get("test_agent_tool") == nil {
		t.Errorf("expected the persona tool, got %v", agent.Tools().Names())
	}
}

func TestNewInstructAgent_BlueprintOverrides(t *testing.T) {
	bp := &AgentBlueprint{
		SystemPrompt: "custom prompt",
		Greeting:     "custom greeting",
		MaxTurns:     7,
	}
	agent := NewInstructAgent(runnerMeta, bp, quietConfig(), nil, NewInMemoryMemoryStore())

	if agent.SystemPrompt() != "custom prompt" {
		t.Errorf("expected custom prompt, got %q", agent.SystemPrompt())
	}
	if agent.Greeting() != "custom greeting" {
		t.Errorf("expected custom greeting, got %q", agent.Greeting())
	}
	if agent.MaxTurns() != 7 {
		t.Errorf("expected 7, got %d", agent.MaxTurns())
	}
}

func TestPersonaTool_Format(t *testing.T) {
	tool := personaTool(runnerMeta)
	out, err := tool.Handler(&ToolContext{}, map[string]interface{}{"input": "check this"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[Test Agent (Software Testing) processing]: check this" {
		t.Fatalf("unexpected persona output: %v", out)
	}
}

func TestRespond_CountsStats(t *testing.T) {
	callCount := 0
	llm := func(ctx context.Context, msgs []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		callCount++
		if callCount == 1 {
			return makeToolCallResp([]struct{ Name, Args string }{
				{"test_agent_tool", `{"input":"x"}`},
			}, ""), nil
		}
		return makeFinalResp("done"), nil
	}
	agent := newTestAgent(llm)

	if _, err := agent.Respond(context.Background(), "s1", "go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := agent.Stats()
	if stats.Turns.Load() != 1 {
		t.Errorf("expected 1 turn, got %d", stats.Turns.Load())
	}
	if stats.LLMCalls.Load() != 2 {
		t.Errorf("expected 2 llm calls, got %d", stats.LLMCalls.Load())
	}
	if stats.ToolCalls.Load() != 1 {
		t.Errorf("expected 1 tool call, got %d", stats.ToolCalls.Load())
	}
}
