package instructagent

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// ──────────────────────────────────────────────
// Tool Calling Framework
// ──────────────────────────────────────────────
//
// Tools come from agent definitions (Lua handlers) or from Go code. The
// registry exports the OpenAI tools schema and executes calls by name.

// ToolContext is passed to tool handlers during execution.
type ToolContext struct {
	ToolName string
	CallID   string
	// Ctx propagates cancellation and timeout from the running turn.
	Ctx context.Context
}

// ToolParam describes a single parameter of a tool.
type ToolParam struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "string", "integer", "number", "boolean", "array", "object"
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolHandlerFunc is the signature of tool execution handlers.
type ToolHandlerFunc func(ctx *ToolContext, args map[string]interface{}) (interface{}, error)

// Tool defines a callable tool with metadata and handler.
type Tool struct {
	Name        string
	Description string
	Parameters  []ToolParam
	Handler     ToolHandlerFunc
}

// ToJSONSchema exports this tool as a generic JSON Schema object.
func (t *Tool) ToJSONSchema() map[string]interface{} {
	properties := make(map[string]interface{})
	var required []string

	for _, p := range t.Parameters {
		prop := map[string]interface{}{
			"type": p.Type,
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"parameters": map[string]interface{}{
			"type":       "object",
			"properties": properties,
		},
	}
	if len(required) > 0 {
		schema["parameters"].(map[string]interface{})["required"] = required
	}
	return schema
}

// ToOpenAISchema exports in OpenAI function calling format.
func (t *Tool) ToOpenAISchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "function",
		"function": t.ToJSONSchema(),
	}
}

// ToolRegistry manages tool registration, schema export, and execution.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry, replacing a same-named one.
func (r *ToolRegistry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	log.Printf("[ToolRegistry] Registered: %s", t.Name)
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns the registered tool names, sorted.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToOpenAISchema exports all tools in OpenAI function calling format.
func (r *ToolRegistry) ToOpenAISchema() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]map[string]interface{}, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, t.ToOpenAISchema())
	}
	return schemas
}

// Execute runs a tool by name with the given arguments. Defaults are filled
// for missing optional parameters; missing required parameters fail before
// the handler runs.
func (r *ToolRegistry) Execute(name string, args map[string]interface{}, ctx *ToolContext) (interface{}, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tool not found: %q", name)
	}
	if t.Handler == nil {
		return nil, fmt.Errorf("tool %q has no handler", name)
	}

	if ctx == nil {
		ctx = &ToolContext{ToolName: name}
	} else {
		ctx.ToolName = name
	}

	if args == nil {
		args = make(map[string]interface{})
	}

	for _, p := range t.Parameters {
		if _, exists := args[p.Name]; !exists && !p.Required && p.Default != nil {
			args[p.Name] = p.Default
		}
	}
	for _, p := range t.Parameters {
		if p.Required {
			if _, exists := args[p.Name]; !exists {
				return nil, fmt.Errorf("tool %q missing required argument: %q", name, p.Name)
			}
		}
	}

	return t.Handler(ctx, args)
}
