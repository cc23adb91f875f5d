package web

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	instructagent "github.com/instructware/instruct-agent-go"
)

const sessionKeyPrefix = "session:"

// SessionInfo describes one widget session.
type SessionInfo struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// SessionIndex tracks the widget sessions of one agent in the memory store,
// under namespace "{agent_id}" with keys "session:{id}". With the Redis
// store the index survives a restart together with the histories.
type SessionIndex struct {
	store   instructagent.MemoryStore
	agentID string
}

// NewSessionIndex creates the index for one agent.
func NewSessionIndex(store instructagent.MemoryStore, agentID string) *SessionIndex {
	return &SessionIndex{store: store, agentID: agentID}
}

// Register records a new session.
func (i *SessionIndex) Register(sessionID string) error {
	info, _ := json.Marshal(SessionInfo{
		ID:        sessionID,
		CreatedAt: time.Now().Format(time.RFC3339),
	})
	return i.store.Set(i.agentID, sessionKeyPrefix+sessionID, string(info))
}

// Has reports whether the session is known.
func (i *SessionIndex) Has(sessionID string) bool {
	raw, err := i.store.Get(i.agentID, sessionKeyPrefix+sessionID)
	return err == nil && raw != ""
}

// Remove forgets a session.
func (i *SessionIndex) Remove(sessionID string) error {
	return i.store.Delete(i.agentID, sessionKeyPrefix+sessionID)
}

// List returns the known sessions, oldest first.
func (i *SessionIndex) List() ([]SessionInfo, error) {
	keys, err := i.store.ListKeys(i.agentID)
	if err != nil {
		return nil, err
	}
	sessions := make([]SessionInfo, 0, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k, sessionKeyPrefix) {
			continue
		}
		raw, err := i.store.Get(i.agentID, k)
		if err != nil || raw == "" {
			continue
		}
		var info SessionInfo
		if json.Unmarshal([]byte(raw), &info) == nil {
			sessions = append(sessions, info)
		}
	}
	sort.Slice(sessions, func(a, b int) bool {
		if sessions[a].CreatedAt != sessions[b].CreatedAt {
			return sessions[a].CreatedAt < sessions[b].CreatedAt
		}
		return sessions[a].ID < sessions[b].ID
	})
	return sessions, nil
}
