// Package tool defines the tool-execution capability the engine invokes
// when the model requests a tool, plus a func-backed registry hosts can
// populate with their own tools.
package tool

import (
	"fmt"

	"github.com/papercomputeco/scribe/pkg/wire"
)

// Result is the outcome of one synchronous tool execution.
type Result struct {
	Content string
	IsError bool
}

// Text builds a successful result.
func Text(content string) Result {
	return Result{Content: content}
}

// Errorf builds an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

// Executor maps a named tool invocation to its textual result. Execution is
// synchronous; the engine calls it once per tool_use block, in block order.
type Executor interface {
	// Definitions returns the tool definitions advertised to the model.
	Definitions() []wire.ToolDefinition

	// Execute runs one tool. Unknown tools return an error result rather
	// than an error: the model should see the failure as a tool_result.
	Execute(name string, input map[string]any) Result
}

// Func implements a single tool.
type Func func(input map[string]any) Result

// Registry is an Executor backed by registered functions. Definitions keep
// registration order, which matters because the request builder attaches
// the prompt-cache marker to the last definition.
type Registry struct {
	defs  []wire.ToolDefinition
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds a tool. Registering a name twice replaces the function but
// keeps the original definition position.
func (r *Registry) Register(def wire.ToolDefinition, fn Func) {
	if _, exists := r.funcs[def.Name]; !exists {
		r.defs = append(r.defs, def)
	}
	r.funcs[def.Name] = fn
}

// Definitions returns the registered tool definitions in order.
func (r *Registry) Definitions() []wire.ToolDefinition {
	defs := make([]wire.ToolDefinition, len(r.defs))
	copy(defs, r.defs)
	return defs
}

// Execute runs the named tool.
func (r *Registry) Execute(name string, input map[string]any) Result {
	fn, ok := r.funcs[name]
	if !ok {
		return Errorf("Unknown tool: %s", name)
	}
	return fn(input)
}

// stringInput reads a string field from a tool input object, defaulting to
// empty when absent or mistyped.
func stringInput(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// intInput reads an integer field from a tool input object. JSON numbers
// decode as float64.
func intInput(input map[string]any, key string, fallback int) int {
	if v, ok := input[key].(float64); ok {
		return int(v)
	}
	return fallback
}
