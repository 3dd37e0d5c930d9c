// Package tools provides the capability framework for the agent: the Tool
// interface, the registry, and the whitelist-enforcing executor.
package tools

import (
	"fmt"
	"sort"
)

// Context carries caller identity and trace information into a tool run.
type Context struct {
	UserID  string
	TraceID string
	Step    int
}

// Output is the structured result of a tool run. Tools report failure
// through OK/Error; no error value crosses the execution boundary.
type Output struct {
	OK    bool
	Data  map[string]any
	Error string
}

// Fail builds a failed Output from a formatted message.
func Fail(format string, args ...any) Output {
	return Output{OK: false, Error: fmt.Sprintf(format, args...)}
}

// Tool is the interface every capability implements.
type Tool interface {
	// Name returns the tool identifier used in function calls.
	Name() string
	// Description returns a human-readable description for the planner.
	Description() string
	// Parameters returns the JSON Schema for tool arguments.
	Parameters() map[string]any
	// Validate checks args against the declared schema before Run is called.
	Validate(args map[string]any) error
	// Run executes the tool with validated arguments.
	Run(ctx Context, args map[string]any) Output
}

// Spec is the externally visible description of a registered tool.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Registry manages tool registration. It is populated at construction
// time and read-only afterwards, so concurrent runs may share it.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate or empty names are rejected.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the spec of every registered tool, sorted by name.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, Spec{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Definitions returns tool definitions in OpenAI function format,
// optionally filtered by a whitelist.
func (r *Registry) Definitions(whitelist []string) []map[string]any {
	allowed := map[string]bool{}
	for _, name := range whitelist {
		allowed[name] = true
	}
	result := make([]map[string]any, 0, len(r.tools))
	for _, spec := range r.Specs() {
		if len(allowed) > 0 && !allowed[spec.Name] {
			continue
		}
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        spec.Name,
				"description": spec.Description,
				"parameters":  spec.InputSchema,
			},
		})
	}
	return result
}

// GetString extracts a string argument with a default value.
func GetString(args map[string]any, key, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetInt extracts an int argument with a default value.
func GetInt(args map[string]any, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return defaultVal
}
