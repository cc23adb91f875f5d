package instructagent

import (
	"testing"
)

// ══════════════════════════════════════════════
// Span tree construction
// ══════════════════════════════════════════════

func TestTracer_BuildsSpanTree(t *testing.T) {
	var exported []*TracingSpan
	tracer := NewAgentTracer(&CallbackSpanExporter{Fn: func(s *TracingSpan) {
		exported = append(exported, s)
	}}, true)

	tracer.NewTrace()
	turn := tracer.TurnSpan("s1")

	llm := tracer.LLMSpan("test-model", map[string]interface{}{"iteration": 1})
	tracer.EndSpan(llm, SpanOK, "")

	tool := tracer.ToolSpan("get_weather", map[string]interface{}{"city": "Paris"})
	tracer.EndSpan(tool, SpanError, "timeout")

	tracer.EndSpan(turn, SpanOK, "")

	if len(exported) != 1 {
		t.Fatalf("expected 1 exported root, got %d", len(exported))
	}
	root := exported[0]
	if root.Name != "agent.turn" || root.Kind != SpanKindTurn {
		t.Fatalf("unexpected root: %s/%s", root.Name, root.Kind)
	}
	if root.ParentID != "" {
		t.Fatal("root span must have no parent")
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	if root.Children[0].Name != "llm.call" || root.Children[1].Name != "tool.get_weather" {
		t.Fatalf("unexpected children: %s, %s", root.Children[0].Name, root.Children[1].Name)
	}
	for _, child := range root.Children {
		if child.ParentID != root.SpanID {
			t.Errorf("child %s not parented to root", child.Name)
		}
		if child.TraceID != root.TraceID {
			t.Errorf("child %s has a different trace id", child.Name)
		}
	}
	if root.Children[1].Status != SpanError || root.Children[1].Error != "timeout" {
		t.Errorf("expected tool failure recorded, got %s/%s",
			root.Children[1].Status, root.Children[1].Error)
	}
	if root.Children[0].Attributes["model"] != "test-model" {
		t.Errorf("expected model attribute, got %v", root.Children[0].Attributes)
	}
}

func TestTracer_ChildrenExportOnlyViaRoot(t *testing.T) {
	calls := 0
	tracer := NewAgentTracer(&CallbackSpanExporter{Fn: func(s *TracingSpan) { calls++ }}, true)

	tracer.NewTrace()
	turn := tracer.TurnSpan("s1")
	llm := tracer.LLMSpan("m", nil)
	tracer.EndSpan(llm, SpanOK, "")
	if calls != 0 {
		t.Fatal("child spans must not export on their own")
	}
	tracer.EndSpan(turn, SpanOK, "")
	if calls != 1 {
		t.Fatalf("expected 1 export, got %d", calls)
	}
}

func TestTracer_NewTraceSeparatesTurns(t *testing.T) {
	var roots []*TracingSpan
	tracer := NewAgentTracer(&CallbackSpanExporter{Fn: func(s *TracingSpan) {
		roots = append(roots, s)
	}}, true)

	first := tracer.NewTrace()
	turn := tracer.TurnSpan("s1")
	tracer.EndSpan(turn, SpanOK, "")

	second := tracer.NewTrace()
	turn = tracer.TurnSpan("s1")
	tracer.EndSpan(turn, SpanOK, "")

	if first == second {
		t.Fatal("expected distinct trace ids per turn")
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].TraceID == roots[1].TraceID {
		t.Fatal("expected roots in different traces")
	}
}

// ══════════════════════════════════════════════
// Disabled and degenerate paths
// ══════════════════════════════════════════════

func TestTracer_DisabledIsInert(t *testing.T) {
	calls := 0
	tracer := NewAgentTracer(&CallbackSpanExporter{Fn: func(s *TracingSpan) { calls++ }}, false)

	if tracer.Enabled() {
		t.Fatal("expected disabled")
	}
	span := tracer.TurnSpan("s1")
	if span == nil {
		t.Fatal("disabled tracer must still hand out spans")
	}
	tracer.EndSpan(span, SpanOK, "")
	if calls != 0 {
		t.Fatalf("expected no exports when disabled, got %d", calls)
	}
}

func TestTracer_NilExporterDiscards(t *testing.T) {
	tracer := NewAgentTracer(nil, true)
	span := tracer.TurnSpan("s1")
	tracer.EndSpan(span, SpanOK, "")
}

func TestSpan_DurationNonNegative(t *testing.T) {
	tracer := NewAgentTracer(nil, true)
	span := tracer.TurnSpan("s1")
	if span.DurationMs() < 0 {
		t.Fatal("running span duration must not be negative")
	}
	tracer.EndSpan(span, SpanOK, "")
	if span.DurationMs() < 0 {
		t.Fatal("finished span duration must not be negative")
	}
	if span.EndTime.IsZero() {
		t.Fatal("expected end time set")
	}
}
