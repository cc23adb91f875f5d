package instructagent

import "errors"

// Sentinel errors for the catalog and loader. Callers match with errors.Is;
// wrapped errors carry the agent identifier and path.
var (
	// ErrAgentNotFound means the definition file does not exist.
	ErrAgentNotFound = errors.New("agent definition not found")
	// ErrAgentUnreadable means the definition file exists but is not
	// decodable as UTF-8 text.
	ErrAgentUnreadable = errors.New("agent definition is not readable text")
	// ErrFactoryMissing means a loaded definition exposes no create_agent
	// function.
	ErrFactoryMissing = errors.New("agent definition has no create_agent function")
)
