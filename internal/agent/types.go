package agent

import (
	"fmt"
	"strings"
)

// Action is the arbitrated next-step kind. The loop dispatches on this
// closed set exhaustively; raw planner strings never reach the dispatcher.
type Action string

const (
	ActionTool    Action = "tool"
	ActionReflect Action = "reflect"
	ActionRetry   Action = "retry"
	ActionFinal   Action = "final"
)

// ParseAction normalizes a raw planner action string. Unknown values
// return ok=false; callers decide the downgrade.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionTool:
		return ActionTool, true
	case ActionReflect:
		return ActionReflect, true
	case ActionRetry:
		return ActionRetry, true
	case ActionFinal:
		return ActionFinal, true
	}
	return ActionReflect, false
}

// FunctionCall names a tool invocation proposed by the planner.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Proposal is the raw planner output for one step. Action is still an
// unvalidated string here; the arbiter is the normalization boundary.
type Proposal struct {
	Action       string        `json:"action"`
	Thought      string        `json:"thought"`
	Confidence   float64       `json:"confidence"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	FinalText    string        `json:"final_text,omitempty"`
}

// Decision is the arbitrated, normalized form of a Proposal. Created once
// per iteration and never mutated. Reason is set only when the arbiter
// downgraded the proposal.
type Decision struct {
	Action       Action
	Thought      string
	Confidence   float64
	FunctionCall *FunctionCall
	FinalText    string
	Reason       string
}

// StepResult records one control-loop iteration in the run transcript.
type StepResult struct {
	StepIndex    int            `json:"step_index"`
	Thought      string         `json:"thought"`
	Action       Action         `json:"action"`
	FunctionCall *FunctionCall  `json:"function_call,omitempty"`
	FinalText    string         `json:"final_text,omitempty"`
	Confidence   float64        `json:"confidence"`
	Notes        map[string]any `json:"notes,omitempty"`
}

// ToolTrace is the per-invocation entry in the run's tool trace list.
type ToolTrace struct {
	Step      int            `json:"step"`
	Tool      string         `json:"tool"`
	OK        bool           `json:"ok"`
	LatencyMS int64          `json:"latency_ms"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// WorkingMemoryEntry is one element of the rolling window fed back into
// planning. Tool results carry Type "tool_result".
type WorkingMemoryEntry struct {
	Type   string         `json:"type"`
	Step   int            `json:"step"`
	Tool   string         `json:"tool,omitempty"`
	OK     bool           `json:"ok"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Request bounds for RunRequest validation.
const (
	MinTimeoutMS     = 1000
	MaxTimeoutMS     = 120000
	DefaultTimeoutMS = 20000
)

// RunRequest is one agent run submitted by a caller.
type RunRequest struct {
	Prompt        string   `json:"prompt"`
	MaxIterations int      `json:"max_iterations"`
	AllowTools    *bool    `json:"allow_tools,omitempty"`
	ToolWhitelist []string `json:"tool_whitelist,omitempty"`
	TimeoutMS     int      `json:"timeout_ms"`
}

// Validate applies defaults and range checks. A zero MaxIterations or
// TimeoutMS takes the default; out-of-range values are rejected rather
// than silently clamped at this surface.
func (r *RunRequest) Validate(p Policy) error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	if r.MaxIterations == 0 {
		r.MaxIterations = p.MaxIterationsDefault
	}
	if r.MaxIterations < 1 || r.MaxIterations > p.MaxIterationsCap {
		return fmt.Errorf("max_iterations must be in [1, %d]", p.MaxIterationsCap)
	}
	if r.TimeoutMS == 0 {
		r.TimeoutMS = DefaultTimeoutMS
	}
	if r.TimeoutMS < MinTimeoutMS || r.TimeoutMS > MaxTimeoutMS {
		return fmt.Errorf("timeout_ms must be in [%d, %d]", MinTimeoutMS, MaxTimeoutMS)
	}
	return nil
}

// ToolsAllowed resolves the AllowTools default (true).
func (r *RunRequest) ToolsAllowed() bool {
	if r.AllowTools == nil {
		return true
	}
	return *r.AllowTools
}

// RunResponse is the terminal result of one run. OK is false only on
// timeout; every other failure mode is folded into steps and traces.
type RunResponse struct {
	OK            bool           `json:"ok"`
	Answer        string         `json:"answer"`
	Steps         []StepResult   `json:"steps"`
	ToolTraces    []ToolTrace    `json:"tool_traces"`
	DecisionTrace map[string]any `json:"decision_trace"`
	Error         string         `json:"error,omitempty"`
}
