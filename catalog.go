package instructagent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ──────────────────────────────────────────────
// Agent Catalog — definition discovery and metadata
// ──────────────────────────────────────────────
//
// A catalog points at one directory of .lua agent definitions. The file stem
// is the agent identifier: agents/test_agent.lua -> "test_agent".
//
// Usage:
//
//	catalog := instructagent.NewAgentCatalog("agents")
//	ids, _ := catalog.List()
//	meta, err := catalog.Metadata("test_agent")

// DefinitionExt is the file extension of agent definitions.
const DefinitionExt = ".lua"

// FactoryDeclaration is the substring Validate requires in a definition.
const FactoryDeclaration = "function create_agent("

// templateStem is the reserved scaffold file, never listed as an agent.
const templateStem = "template_agent"

// Header patterns, each matched independently against the full file text.
var (
	reAgentName = regexp.MustCompile(`# Agent Name:\s*(.+)`)
	reExpertise = regexp.MustCompile(`# Expertise:\s*(.+)`)
	reTask      = regexp.MustCompile(`# Task:\s*(.+)`)
	reCreated   = regexp.MustCompile(`# Created:\s*(.+)`)
)

// AgentCatalog lists, validates and describes agent definition files.
type AgentCatalog struct {
	dir string
}

// NewAgentCatalog creates a catalog over the given definitions directory.
func NewAgentCatalog(dir string) *AgentCatalog {
	return &AgentCatalog{dir: dir}
}

// Dir returns the definitions directory.
func (c *AgentCatalog) Dir() string { return c.dir }

// Path returns the definition path for an identifier.
func (c *AgentCatalog) Path(identifier string) string {
	return filepath.Join(c.dir, identifier+DefinitionExt)
}

// Metadata extracts the agent metadata from the definition header.
//
// Each header is matched on its own; a missing header falls back to a
// default (the name falls back to the identifier itself), so extraction
// never fails over absent headers. It fails only when the file is missing
// (ErrAgentNotFound) or is not valid UTF-8 text (ErrAgentUnreadable).
func (c *AgentCatalog) Metadata(identifier string) (AgentMetadata, error) {
	path := c.Path(identifier)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return AgentMetadata{}, fmt.Errorf("agent %q: %w", identifier, ErrAgentNotFound)
		}
		return AgentMetadata{}, fmt.Errorf("agent %q: read %s: %w", identifier, path, err)
	}
	if !utf8.Valid(data) {
		return AgentMetadata{}, fmt.Errorf("agent %q: %s: %w", identifier, path, ErrAgentUnreadable)
	}

	text := string(data)
	meta := AgentMetadata{
		Name:      identifier,
		Expertise: "General",
		Task:      "Assistant",
		Created:   "Unknown",
		FilePath:  path,
		AgentID:   identifier,
	}
	if m := reAgentName.FindStringSubmatch(text); m != nil {
		meta.Name = strings.TrimSpace(m[1])
	}
	if m := reExpertise.FindStringSubmatch(text); m != nil {
		meta.Expertise = strings.TrimSpace(m[1])
	}
	if m := reTask.FindStringSubmatch(text); m != nil {
		meta.Task = strings.TrimSpace(m[1])
	}
	if m := reCreated.FindStringSubmatch(text); m != nil {
		meta.Created = strings.TrimSpace(m[1])
	}
	return meta, nil
}

// List returns the sorted, duplicate-free identifiers of all definitions in
// the directory. The template scaffold and hidden/init-style files (stems
// starting with "." or "_") are excluded. A missing directory is an empty
// catalog, not an error.
func (c *AgentCatalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list agents in %s: %w", c.dir, err)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DefinitionExt) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), DefinitionExt)
		if stem == templateStem || strings.HasPrefix(stem, ".") || strings.HasPrefix(stem, "_") {
			continue
		}
		if seen[stem] {
			continue
		}
		seen[stem] = true
		ids = append(ids, stem)
	}
	sort.Strings(ids)
	return ids, nil
}

// Validate reports whether the identifier's definition exists, is readable
// text, and declares the agent factory. Any failure reads as false; Validate
// never returns an error.
func (c *AgentCatalog) Validate(identifier string) bool {
	data, err := os.ReadFile(c.Path(identifier))
	if err != nil {
		return false
	}
	if !utf8.Valid(data) {
		return false
	}
	return strings.Contains(string(data), FactoryDeclaration)
}
