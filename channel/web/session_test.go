package web

import (
	"testing"
	"time"

	instructagent "github.com/instructware/instruct-agent-go"
)

func TestSessionIndex_RegisterHasRemove(t *testing.T) {
	store := instructagent.NewInMemoryMemoryStore()
	idx := NewSessionIndex(store, "test_agent")

	if idx.Has("s1") {
		t.Fatal("expected unknown session before registration")
	}
	if err := idx.Register("s1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !idx.Has("s1") {
		t.Fatal("expected session known after registration")
	}

	sessions, err := idx.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("unexpected sessions: %v", sessions)
	}
	if _, err := time.Parse(time.RFC3339, sessions[0].CreatedAt); err != nil {
		t.Fatalf("expected RFC3339 timestamp, got %q", sessions[0].CreatedAt)
	}

	if err := idx.Remove("s1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if idx.Has("s1") {
		t.Fatal("expected session forgotten after removal")
	}
}

func TestSessionIndex_ListOrdersByCreation(t *testing.T) {
	store := instructagent.NewInMemoryMemoryStore()
	idx := NewSessionIndex(store, "test_agent")

	store.Set("test_agent", "session:late", `{"id":"late","created_at":"2026-02-01T10:00:00Z"}`)
	store.Set("test_agent", "session:early", `{"id":"early","created_at":"2026-01-01T10:00:00Z"}`)
	store.Set("test_agent", "session:mid", `{"id":"mid","created_at":"2026-01-15T10:00:00Z"}`)

	sessions, err := idx.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "early" || sessions[1].ID != "mid" || sessions[2].ID != "late" {
		t.Fatalf("expected oldest first, got %v", sessions)
	}
}

func TestSessionIndex_ListSkipsForeignAndMalformedKeys(t *testing.T) {
	store := instructagent.NewInMemoryMemoryStore()
	idx := NewSessionIndex(store, "test_agent")

	store.Set("test_agent", "session:good", `{"id":"good","created_at":"2026-01-01T10:00:00Z"}`)
	store.Set("test_agent", "session:bad", "{not json")
	store.Set("test_agent", "unrelated", "value")

	sessions, err := idx.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "good" {
		t.Fatalf("expected only the valid session, got %v", sessions)
	}
}

func TestSessionIndex_AgentsAreIsolated(t *testing.T) {
	store := instructagent.NewInMemoryMemoryStore()
	a := NewSessionIndex(store, "agent_a")
	b := NewSessionIndex(store, "agent_b")

	a.Register("s1")
	if b.Has("s1") {
		t.Fatal("expected per-agent session namespaces")
	}
	sessions, _ := b.List()
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions for agent_b, got %v", sessions)
	}
}
