package instructagent

import (
	"log"
	"sort"
	"sync"
)

// AgentRegistry holds the live agents of this process, keyed by identifier.
// Registering an identifier again replaces the previous runtime; two agents
// with the same identifier never coexist.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*InstructAgent
}

// NewAgentRegistry creates an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]*InstructAgent)}
}

// Register adds an agent under its identifier.
func (r *AgentRegistry) Register(a *InstructAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.Meta.AgentID]; exists {
		log.Printf("[AgentRegistry] Replacing: %s", a.Meta.AgentID)
	}
	r.agents[a.Meta.AgentID] = a
	log.Printf("[AgentRegistry] Registered: %s", a.Meta.AgentID)
}

// Get returns the agent for the identifier, or nil.
func (r *AgentRegistry) Get(identifier string) *InstructAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[identifier]
}

// IDs returns the registered identifiers, sorted.
func (r *AgentRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered agents.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
