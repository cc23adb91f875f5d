package instructagent

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"
)

// ──────────────────────────────────────────────
// Tracing — per-turn span tree
// ──────────────────────────────────────────────
//
// The runtime opens one turn span per user message with child spans for
// every LLM call and tool execution. AGENT_VERBOSE=true wires the console
// exporter; otherwise spans cost almost nothing.

// SpanKindType classifies a span.
type SpanKindType string

const (
	SpanKindTurn SpanKindType = "turn"
	SpanKindLLM  SpanKindType = "llm"
	SpanKindTool SpanKindType = "tool"
)

// Span statuses.
const (
	SpanOK    = "ok"
	SpanError = "error"
)

// TracingSpan represents a single unit of work.
type TracingSpan struct {
	SpanID     string                 `json:"span_id"`
	TraceID    string                 `json:"trace_id"`
	ParentID   string                 `json:"parent_id,omitempty"`
	Name       string                 `json:"name"`
	Kind       SpanKindType           `json:"kind"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Children   []*TracingSpan         `json:"children,omitempty"`
	Status     string                 `json:"status"`
	Error      string                 `json:"error,omitempty"`
	mu         sync.Mutex
}

// DurationMs returns the span duration in milliseconds.
func (s *TracingSpan) DurationMs() float64 {
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return float64(end.Sub(s.StartTime).Microseconds()) / 1000.0
}

// End marks the span as finished.
func (s *TracingSpan) End(status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndTime = time.Now()
	s.Status = status
	s.Error = errMsg
}

func (s *TracingSpan) addChild(child *TracingSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Children = append(s.Children, child)
}

// SpanExporter receives finished root spans.
type SpanExporter interface {
	Export(span *TracingSpan)
}

// NullSpanExporter discards all spans.
type NullSpanExporter struct{}

func (e *NullSpanExporter) Export(span *TracingSpan) {}

// ConsoleSpanExporter logs the root span and its children.
type ConsoleSpanExporter struct{}

func (e *ConsoleSpanExporter) Export(span *TracingSpan) {
	e.logSpan(span, 0)
}

func (e *ConsoleSpanExporter) logSpan(span *TracingSpan, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	log.Printf("[Trace] %s%s %s status=%s duration=%.1fms",
		indent, span.Kind, span.Name, span.Status, span.DurationMs())
	for _, child := range span.Children {
		e.logSpan(child, depth+1)
	}
}

// CallbackSpanExporter calls a function for each root span.
type CallbackSpanExporter struct {
	Fn func(span *TracingSpan)
}

func (e *CallbackSpanExporter) Export(span *TracingSpan) {
	e.Fn(span)
}

// AgentTracer creates and manages spans for one agent runtime.
type AgentTracer struct {
	exporter SpanExporter
	enabled  bool
	traceID  string
	stack    []*TracingSpan
	mu       sync.Mutex
}

// NewAgentTracer creates a tracer. A nil exporter discards spans.
func NewAgentTracer(exporter SpanExporter, enabled bool) *AgentTracer {
	if exporter == nil {
		exporter = &NullSpanExporter{}
	}
	return &AgentTracer{exporter: exporter, enabled: enabled}
}

// Enabled reports whether spans are recorded.
func (t *AgentTracer) Enabled() bool { return t.enabled }

// NewTrace starts a new trace, usually one per user turn.
func (t *AgentTracer) NewTrace() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.traceID = randomHex(16)
	t.stack = nil
	return t.traceID
}

// StartSpan creates and starts a span nested under the current one.
func (t *AgentTracer) StartSpan(name string, kind SpanKindType, attrs map[string]interface{}) *TracingSpan {
	if !t.enabled {
		return &TracingSpan{Name: name, Kind: kind, Status: SpanOK}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.traceID == "" {
		t.traceID = randomHex(16)
	}

	parentID := ""
	if len(t.stack) > 0 {
		parentID = t.stack[len(t.stack)-1].SpanID
	}

	span := &TracingSpan{
		SpanID:     randomHex(6),
		TraceID:    t.traceID,
		ParentID:   parentID,
		Name:       name,
		Kind:       kind,
		StartTime:  time.Now(),
		Attributes: attrs,
		Status:     "running",
	}

	if len(t.stack) > 0 {
		t.stack[len(t.stack)-1].addChild(span)
	}
	t.stack = append(t.stack, span)
	return span
}

// EndSpan ends the span and exports it when it is a root.
func (t *AgentTracer) EndSpan(span *TracingSpan, status string, errMsg string) {
	if !t.enabled {
		return
	}

	span.End(status, errMsg)

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.stack) > 0 && t.stack[len(t.stack)-1] == span {
		t.stack = t.stack[:len(t.stack)-1]
	}

	if span.ParentID == "" {
		t.exporter.Export(span)
	}
}

// TurnSpan opens the root span of one user turn.
func (t *AgentTracer) TurnSpan(sessionID string) *TracingSpan {
	return t.StartSpan("agent.turn", SpanKindTurn, map[string]interface{}{"session": sessionID})
}

// LLMSpan opens a span around one completion call.
func (t *AgentTracer) LLMSpan(model string, attrs map[string]interface{}) *TracingSpan {
	name := "llm.call"
	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	if model != "" {
		attrs["model"] = model
	}
	return t.StartSpan(name, SpanKindLLM, attrs)
}

// ToolSpan opens a span around one tool execution.
func (t *AgentTracer) ToolSpan(toolName string, attrs map[string]interface{}) *TracingSpan {
	return t.StartSpan(fmt.Sprintf("tool.%s", toolName), SpanKindTool, attrs)
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
