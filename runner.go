package instructagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// ──────────────────────────────────────────────
// Agent Runtime — persona-bound reasoning loop
// ──────────────────────────────────────────────
//
// Core flow per user turn:
//
//	User Input → LLM → [tool_calls?] → Execute → Feed back → LLM → ... → Final Output
//
// Usage:
//
//	agent := instructagent.NewInstructAgent(meta, blueprint, cfg, client.LLMFunc(), store)
//	result, err := agent.Respond(ctx, sessionID, "Hello")
//	fmt.Println(result.Output)

// ToolCallRecord records a single tool invocation inside a turn.
type ToolCallRecord struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    string                 `json:"result"`
	Error     string                 `json:"error,omitempty"`
	CallID    string                 `json:"call_id"`
}

// TurnRecord records a single LLM iteration.
type TurnRecord struct {
	TurnNumber int              `json:"turn_number"`
	LLMOutput  string           `json:"llm_output,omitempty"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	IsFinal    bool             `json:"is_final"`
}

// Stop reasons for a TurnResult.
const (
	StopCompleted = "completed"
	StopMaxTurns  = "max_turns_reached"
	StopLLMError  = "llm_error"
)

// maxTurnsNotice is the reply when the loop hits its cap with no usable
// content.
const maxTurnsNotice = "I could not finish reasoning within the turn limit. Please rephrase or simplify the request."

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Output         string       `json:"output"`
	Turns          []TurnRecord `json:"turns"`
	ToolCallsCount int          `json:"tool_calls_count"`
	TotalTurns     int          `json:"total_turns"`
	StoppedReason  string       `json:"stopped_reason"`
}

// InstructAgent is a loaded persona bound to an LLM, its tools and session
// memory. One InstructAgent serves one definition; turns are serialized by
// an internal mutex, matching the synchronous single-conversation model.
type InstructAgent struct {
	Meta AgentMetadata

	config       *Config
	llm          LLMFunc
	tools        *ToolRegistry
	store        MemoryStore
	tracer       *AgentTracer
	stats        *AgentStats
	pipeline     *MiddlewarePipeline
	systemPrompt string
	greeting     string
	maxTurns     int

	mu sync.Mutex
}

// NewInstructAgent binds extracted metadata, a blueprint from the definition
// factory, and the runtime pieces into a runnable agent. A nil blueprint
// means "all defaults": persona system prompt, standard greeting, and the
// persona echo tool.
func NewInstructAgent(meta AgentMetadata, bp *AgentBlueprint, cfg *Config, llm LLMFunc, store MemoryStore) *InstructAgent {
	if bp == nil {
		bp = &AgentBlueprint{}
	}
	if cfg == nil {
		cfg = NewConfigFromEnv()
	}

	maxTurns := bp.MaxTurns
	if maxTurns <= 0 {
		maxTurns = cfg.MaxIterations
	}
	if maxTurns <= 0 {
		maxTurns = 3
	}

	registry := NewToolRegistry()
	for _, lt := range bp.Tools {
		registry.Register(lt.Tool())
	}
	if registry.Len() == 0 {
		registry.Register(personaTool(meta))
	}

	a := &InstructAgent{
		Meta:         meta,
		config:       cfg,
		llm:          llm,
		tools:        registry,
		store:        store,
		tracer:       NewAgentTracer(nil, false),
		stats:        NewAgentStats(),
		pipeline:     NewMiddlewarePipeline(),
		systemPrompt: bp.SystemPrompt,
		greeting:     bp.Greeting,
		maxTurns:     maxTurns,
	}
	if a.systemPrompt == "" {
		a.systemPrompt = defaultSystemPrompt(meta, registry.Names())
	}
	if a.greeting == "" {
		a.greeting = fmt.Sprintf("Hello! I'm %s. I specialize in %s. How can I help you today?",
			meta.Name, meta.Expertise)
	}
	if cfg.Verbose {
		a.tracer = NewAgentTracer(&ConsoleSpanExporter{}, true)
	}
	a.Use(RecoveryMiddleware())
	return a
}

// Greeting returns the message the widget shows when a session opens.
func (a *InstructAgent) Greeting() string { return a.greeting }

// SystemPrompt returns the prompt sent as the first message of every turn.
func (a *InstructAgent) SystemPrompt() string { return a.systemPrompt }

// Tools returns the agent's tool registry.
func (a *InstructAgent) Tools() *ToolRegistry { return a.tools }

// MaxTurns returns the iteration cap of one user turn.
func (a *InstructAgent) MaxTurns() int { return a.maxTurns }

// Stats returns the agent's runtime counters.
func (a *InstructAgent) Stats() *AgentStats { return a.stats }

// Use appends middleware around Respond.
func (a *InstructAgent) Use(mw TurnMiddleware) { a.pipeline.Use(mw) }

// Respond runs one user turn through the middleware pipeline. Turns are
// serialized: a second caller blocks until the first returns. There is no
// cancellation beyond ctx and the client's transport timeout.
func (a *InstructAgent) Respond(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Turns.Inc()
	tc := &TurnContext{
		Ctx:       ctx,
		Agent:     a,
		SessionID: sessionID,
		Input:     input,
	}
	return a.pipeline.Execute(tc, a.respond)
}

// respond is the core turn handler under the pipeline.
func (a *InstructAgent) respond(tc *TurnContext) (*TurnResult, error) {
	ctx := tc.Ctx
	history := NewConversationHistory(a.store, a.Meta.AgentID, tc.SessionID, a.config.HistoryWindow)

	prior, err := history.Messages()
	if err != nil {
		log.Printf("[InstructAgent] History read failed for session %s: %v", tc.SessionID, err)
		prior = nil
	}
	if err := history.Add("user", tc.Input); err != nil {
		log.Printf("[InstructAgent] History append failed for session %s: %v", tc.SessionID, err)
	}

	messages := make([]map[string]interface{}, 0, len(prior)+2)
	messages = append(messages, map[string]interface{}{"role": "system", "content": a.systemPrompt})
	messages = append(messages, prior...)
	messages = append(messages, map[string]interface{}{"role": "user", "content": tc.Input})

	var toolsSchema []map[string]interface{}
	if a.tools.Len() > 0 {
		toolsSchema = a.tools.ToOpenAISchema()
	}

	a.tracer.NewTrace()
	turnSpan := a.tracer.TurnSpan(tc.SessionID)

	result := &TurnResult{}
	turnNumber := 0

	for turnNumber < a.maxTurns {
		turnNumber++
		turn := TurnRecord{TurnNumber: turnNumber}

		llmSpan := a.tracer.LLMSpan(a.config.Model, map[string]interface{}{"iteration": turnNumber})
		a.stats.LLMCalls.Inc()
		llmResp, err := a.llm(ctx, messages, toolsSchema)
		if err != nil {
			a.tracer.EndSpan(llmSpan, SpanError, err.Error())
			a.tracer.EndSpan(turnSpan, SpanError, err.Error())
			a.stats.Errors.Inc()
			log.Printf("[InstructAgent] LLM error at iteration %d: %v", turnNumber, err)
			result.StoppedReason = StopLLMError
			result.TotalTurns = turnNumber
			return result, fmt.Errorf("llm call failed: %w", err)
		}
		a.tracer.EndSpan(llmSpan, SpanOK, "")

		turn.LLMOutput = llmResp.Content

		// No tool calls means the content is the final output.
		if len(llmResp.ToolCalls) == 0 {
			turn.IsFinal = true
			result.Output = llmResp.Content
			result.StoppedReason = StopCompleted
			result.Turns = append(result.Turns, turn)
			break
		}

		messages = append(messages, assistantToolCallMessage(llmResp))

		for _, call := range llmResp.ToolCalls {
			name := call.Function.Name
			var args map[string]interface{}
			json.Unmarshal([]byte(call.Function.Arguments), &args)
			if args == nil {
				args = make(map[string]interface{})
			}

			record := ToolCallRecord{ToolName: name, Arguments: args, CallID: call.ID}
			callResult := ToolCallResult{ToolCallID: call.ID, Name: name}

			toolSpan := a.tracer.ToolSpan(name, args)
			a.stats.ToolCalls.Inc()
			toolCtx := &ToolContext{ToolName: name, CallID: call.ID, Ctx: ctx}
			out, toolErr := a.tools.Execute(name, args, toolCtx)
			if toolErr != nil {
				// A failing tool does not abort the turn; the model sees
				// the error text and can recover.
				record.Error = toolErr.Error()
				callResult.Error = fmt.Sprintf("Error: %v", toolErr)
				a.tracer.EndSpan(toolSpan, SpanError, toolErr.Error())
				log.Printf("[InstructAgent] Tool %s failed: %v", name, toolErr)
			} else {
				switch v := out.(type) {
				case string:
					callResult.Content = v
				default:
					b, _ := json.Marshal(v)
					callResult.Content = string(b)
				}
				record.Result = callResult.Content
				a.tracer.EndSpan(toolSpan, SpanOK, "")
			}

			turn.ToolCalls = append(turn.ToolCalls, record)
			result.ToolCallsCount++
			messages = append(messages, callResult.ToMessage())
		}

		result.Turns = append(result.Turns, turn)
	}

	if result.StoppedReason == "" {
		result.StoppedReason = StopMaxTurns
		if n := len(result.Turns); n > 0 && result.Turns[n-1].LLMOutput != "" {
			result.Output = result.Turns[n-1].LLMOutput
		} else {
			result.Output = maxTurnsNotice
		}
	}
	result.TotalTurns = turnNumber

	a.tracer.EndSpan(turnSpan, SpanOK, "")

	if result.Output != "" {
		if err := history.Add("assistant", result.Output); err != nil {
			log.Printf("[InstructAgent] History append failed for session %s: %v", tc.SessionID, err)
		}
	}
	return result, nil
}

// personaTool is the default tool when a definition declares none. Its
// reply format is what the formatter's thinking branch recognizes when the
// model leaks a raw tool acknowledgment.
func personaTool(meta AgentMetadata) *Tool {
	return &Tool{
		Name:        meta.AgentID + "_tool",
		Description: fmt.Sprintf("Handles %s tasks for %s", meta.Expertise, meta.Name),
		Parameters: []ToolParam{
			{Name: "input", Type: "string", Description: "Input text for the tool", Required: true},
		},
		Handler: func(_ *ToolContext, args map[string]interface{}) (interface{}, error) {
			input, _ := args["input"].(string)
			return fmt.Sprintf("[%s (%s) processing]: %s", meta.Name, meta.Expertise, input), nil
		},
	}
}

// defaultSystemPrompt builds the persona prompt from extracted metadata.
func defaultSystemPrompt(meta AgentMetadata, toolNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an expert in %s. Your primary task: %s.",
		meta.Name, meta.Expertise, meta.Task)
	if len(toolNames) > 0 {
		sorted := append([]string(nil), toolNames...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, " You can call these tools when they help: %s.", strings.Join(sorted, ", "))
	}
	b.WriteString(" Answer directly and concisely.")
	return b.String()
}
