package tools

import (
	"fmt"
	"time"
)

// ExecutionRecord is the structured result of one capability invocation.
// Created once by the executor and never mutated; latency is populated on
// every path, including failures.
type ExecutionRecord struct {
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	OK        bool           `json:"ok"`
	LatencyMS int64          `json:"latency_ms"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Executor is the sandboxed boundary between the agent loop and tools.
// Execute never returns an error to the caller: whitelist violations,
// unknown tools, validation failures, and runtime panics all surface as
// OK=false records. Retry policy is layered above in the loop; the
// executor never retries internally.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over a registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs one tool invocation. A nil whitelist means all registered
// tools are allowed; an empty non-nil whitelist allows none.
func (e *Executor) Execute(ctx Context, toolName string, args map[string]any, whitelist map[string]bool) ExecutionRecord {
	started := time.Now()
	rec := ExecutionRecord{ToolName: toolName, Args: args}

	if whitelist != nil && !whitelist[toolName] {
		rec.Error = fmt.Sprintf("tool %q is not allowed by whitelist", toolName)
		return finish(&rec, started)
	}

	tool, ok := e.registry.Get(toolName)
	if !ok {
		rec.Error = fmt.Sprintf("unknown tool %q", toolName)
		return finish(&rec, started)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := tool.Validate(args); err != nil {
		rec.Error = fmt.Sprintf("invalid input for tool %q: %v", toolName, err)
		return finish(&rec, started)
	}

	out := e.run(tool, ctx, args)
	rec.OK = out.OK
	rec.Output = out.Data
	rec.Error = out.Error
	return finish(&rec, started)
}

// run invokes the tool and converts a panic into a failed Output so no
// runtime failure crosses the boundary.
func (e *Executor) run(tool Tool, ctx Context, args map[string]any) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail("unhandled tool error: %v", r)
		}
	}()
	return tool.Run(ctx, args)
}

func finish(rec *ExecutionRecord, started time.Time) ExecutionRecord {
	rec.LatencyMS = time.Since(started).Milliseconds()
	return *rec
}
