package instructagent

import "fmt"

// AgentMetadata describes an agent as declared in the header comment block of
// its definition file. Missing headers fall back to defaults during
// extraction, so every field is always populated.
type AgentMetadata struct {
	Name      string `json:"name"`
	Expertise string `json:"expertise"`
	Task      string `json:"task"`
	Created   string `json:"created"`
	FilePath  string `json:"file_path"`
	AgentID   string `json:"agent_id"`
}

// String renders the metadata one field per line, for console output.
func (m AgentMetadata) String() string {
	return fmt.Sprintf("Agent: %s\nExpertise: %s\nTask: %s\nCreated: %s\nFile: %s",
		m.Name, m.Expertise, m.Task, m.Created, m.FilePath)
}
