package instructagent

import (
	"encoding/json"
	"fmt"
	"time"
)

const historyListKey = "history"

// HistoryEntry is one stored chat message.
type HistoryEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ConversationHistory is the sliding message window of one chat session,
// stored under namespace "{agent_id}:{session_id}". The window keeps the
// most recent messages; older ones are trimmed on every append.
type ConversationHistory struct {
	store     MemoryStore
	namespace string
	window    int
}

// NewConversationHistory opens the history of one session.
func NewConversationHistory(store MemoryStore, agentID, sessionID string, window int) *ConversationHistory {
	if window <= 0 {
		window = 20
	}
	return &ConversationHistory{
		store:     store,
		namespace: fmt.Sprintf("%s:%s", agentID, sessionID),
		window:    window,
	}
}

// Add appends a message and trims the window.
func (h *ConversationHistory) Add(role, content string) error {
	entry := HistoryEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, _ := json.Marshal(entry)
	if err := h.store.Append(h.namespace, historyListKey, string(data)); err != nil {
		return err
	}
	return h.store.TrimList(h.namespace, historyListKey, h.window)
}

// Entries returns the stored window in order, timestamps included.
func (h *ConversationHistory) Entries() ([]HistoryEntry, error) {
	raw, err := h.store.GetList(h.namespace, historyListKey, 0, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(raw))
	for _, r := range raw {
		var e HistoryEntry
		if json.Unmarshal([]byte(r), &e) == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Messages returns the stored window as chat messages for the LLM.
func (h *ConversationHistory) Messages() ([]map[string]interface{}, error) {
	entries, err := h.Entries()
	if err != nil {
		return nil, err
	}
	msgs := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, map[string]interface{}{"role": e.Role, "content": e.Content})
	}
	return msgs, nil
}

// Len returns the stored message count.
func (h *ConversationHistory) Len() (int, error) {
	return h.store.ListLength(h.namespace, historyListKey)
}

// Clear deletes the session's messages.
func (h *ConversationHistory) Clear() error {
	return h.store.ClearList(h.namespace, historyListKey)
}
