package instructagent

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ──────────────────────────────────────────────
// Agent Loader — Lua definition execution
// ──────────────────────────────────────────────
//
// Definitions are executed in a dedicated Lua state and must expose a global
//
//	function create_agent(name, expertise, task)
//
// returning the agent blueprint table. Definition files are trusted code:
// the state is not sandboxed and a definition can do anything the process
// can. Only load files you control.

const factoryName = "create_agent"

// LuaTool is a tool declared by a definition file. Its handler runs inside
// the owning program's Lua state.
type LuaTool struct {
	Name        string
	Description string

	handler *lua.LFunction
	program *AgentProgram
}

// AgentBlueprint is the decoded result of a create_agent call. Zero values
// mean "use the harness default".
type AgentBlueprint struct {
	SystemPrompt string
	Greeting     string
	Temperature  *float64
	MaxTurns     int
	Tools        []*LuaTool
}

// AgentProgram is one loaded definition: a Lua state plus its factory.
// All calls into the state go through the program mutex; lua.LState is not
// goroutine-safe.
type AgentProgram struct {
	Identifier string
	Path       string

	mu      sync.Mutex
	state   *lua.LState
	factory *lua.LFunction
	closed  bool
}

// AgentLoader loads definition files and tracks loaded programs by
// identifier.
type AgentLoader struct {
	dir string

	mu       sync.Mutex
	programs map[string]*AgentProgram
}

// NewAgentLoader creates a loader over the definitions directory.
func NewAgentLoader(dir string) *AgentLoader {
	return &AgentLoader{
		dir:      dir,
		programs: make(map[string]*AgentProgram),
	}
}

// Load executes the definition file for identifier in a fresh Lua state and
// returns its program. A previously loaded program under the same identifier
// is closed and replaced; two programs with one identifier never coexist.
func (l *AgentLoader) Load(identifier string) (*AgentProgram, error) {
	path := filepath.Join(l.dir, identifier+DefinitionExt)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("agent %q: %w", identifier, ErrAgentNotFound)
		}
		return nil, fmt.Errorf("agent %q: stat %s: %w", identifier, path, err)
	}

	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("agent %q: execute definition: %w", identifier, err)
	}

	factory, ok := L.GetGlobal(factoryName).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("agent %q: %w", identifier, ErrFactoryMissing)
	}

	program := &AgentProgram{
		Identifier: identifier,
		Path:       path,
		state:      L,
		factory:    factory,
	}

	l.mu.Lock()
	if prev, exists := l.programs[identifier]; exists {
		prev.Close()
		log.Printf("[AgentLoader] Replacing program: %s", identifier)
	}
	l.programs[identifier] = program
	l.mu.Unlock()

	log.Printf("[AgentLoader] Loaded %s from %s", identifier, path)
	return program, nil
}

// Program returns the loaded program for identifier, or nil.
func (l *AgentLoader) Program(identifier string) *AgentProgram {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.programs[identifier]
}

// Close closes every loaded program.
func (l *AgentLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.programs {
		p.Close()
	}
	l.programs = make(map[string]*AgentProgram)
}

// CreateAgent calls the definition's factory with the extracted metadata,
// positionally as (name, expertise, task), and decodes the returned table.
func (p *AgentProgram) CreateAgent(meta AgentMetadata) (*AgentBlueprint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("agent %q: program closed", p.Identifier)
	}

	err := p.state.CallByParam(
		lua.P{Fn: p.factory, NRet: 1, Protect: true},
		lua.LString(meta.Name), lua.LString(meta.Expertise), lua.LString(meta.Task),
	)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %s: %w", p.Identifier, factoryName, err)
	}
	ret := p.state.Get(-1)
	p.state.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("agent %q: %s returned %s, want table", p.Identifier, factoryName, ret.Type())
	}
	return p.decodeBlueprint(tbl)
}

func (p *AgentProgram) decodeBlueprint(tbl *lua.LTable) (*AgentBlueprint, error) {
	bp := &AgentBlueprint{}
	if v := tbl.RawGetString("system_prompt"); v != lua.LNil {
		bp.SystemPrompt = lua.LVAsString(v)
	}
	if v := tbl.RawGetString("greeting"); v != lua.LNil {
		bp.Greeting = lua.LVAsString(v)
	}
	if v := tbl.RawGetString("temperature"); v != lua.LNil {
		t := float64(lua.LVAsNumber(v))
		bp.Temperature = &t
	}
	if v := tbl.RawGetString("max_turns"); v != lua.LNil {
		bp.MaxTurns = int(lua.LVAsNumber(v))
	}

	toolsTbl, ok := tbl.RawGetString("tools").(*lua.LTable)
	if !ok {
		return bp, nil
	}
	var decodeErr error
	toolsTbl.ForEach(func(_, item lua.LValue) {
		if decodeErr != nil {
			return
		}
		entry, ok := item.(*lua.LTable)
		if !ok {
			decodeErr = fmt.Errorf("agent %q: tool entries must be tables", p.Identifier)
			return
		}
		name := lua.LVAsString(entry.RawGetString("name"))
		handler, ok := entry.RawGetString("handler").(*lua.LFunction)
		if name == "" || !ok {
			decodeErr = fmt.Errorf("agent %q: tool entries need a name and a handler function", p.Identifier)
			return
		}
		bp.Tools = append(bp.Tools, &LuaTool{
			Name:        name,
			Description: lua.LVAsString(entry.RawGetString("description")),
			handler:     handler,
			program:     p,
		})
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return bp, nil
}

// Close releases the program's Lua state. Further factory or handler calls
// fail instead of touching a dead state.
func (p *AgentProgram) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.state.Close()
}

// Invoke runs the Lua handler with the given input text.
func (t *LuaTool) Invoke(input string) (string, error) {
	p := t.program
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", fmt.Errorf("tool %q: program closed", t.Name)
	}
	err := p.state.CallByParam(
		lua.P{Fn: t.handler, NRet: 1, Protect: true},
		lua.LString(input),
	)
	if err != nil {
		return "", fmt.Errorf("tool %q: %w", t.Name, err)
	}
	ret := p.state.Get(-1)
	p.state.Pop(1)
	return lua.LVAsString(ret), nil
}

// Tool converts the Lua tool into a registry tool taking a single "input"
// string parameter.
func (t *LuaTool) Tool() *Tool {
	desc := t.Description
	if desc == "" {
		desc = fmt.Sprintf("Tool %s provided by the agent definition", t.Name)
	}
	return &Tool{
		Name:        t.Name,
		Description: desc,
		Parameters: []ToolParam{
			{Name: "input", Type: "string", Description: "Input text for the tool", Required: true},
		},
		Handler: func(_ *ToolContext, args map[string]interface{}) (interface{}, error) {
			input, _ := args["input"].(string)
			return t.Invoke(input)
		},
	}
}
