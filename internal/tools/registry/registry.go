package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Name returns the unique name the model calls the tool by
	Name() string

	// Description returns a human-readable description of what the tool does
	Description() string

	// Parameters returns the JSON schema for the tool's arguments
	Parameters() map[string]any

	// Execute runs the tool with raw JSON arguments and returns its text output
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolRegistry keeps tools in registration order so the model sees a stable
// tool list.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewToolRegistry creates a new empty tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. A tool with the same name replaces
// the earlier one in place.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		slog.Warn("Tool already registered, overwriting", "name", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
	slog.Debug("Tool registered", "name", name)
}

// Get returns a tool by name, or nil if not found
func (r *ToolRegistry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// GetAll returns all registered tools in registration order
func (r *ToolRegistry) GetAll() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// GetToolNames returns the names of all registered tools
func (r *ToolRegistry) GetToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// HasTool checks if a tool with the given name is registered
func (r *ToolRegistry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// Count returns the number of registered tools
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke runs the named tool. An unknown name is answered with text rather
// than an error so the model can recover on its next round.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		slog.WarnContext(ctx, "Unknown tool requested", "name", name)
		return fmt.Sprintf("未知工具: %s", name), nil
	}
	return tool.Execute(ctx, args)
}
