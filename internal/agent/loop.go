// Package agent implements the iterative control loop: planner proposals
// are arbitrated into safe decisions, tool decisions are executed through
// the whitelist-enforcing boundary, and every iteration is recorded in
// the run transcript.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cognos-ai/cognos/internal/tools"
	"github.com/cognos-ai/cognos/internal/trace"
)

// PlanPayload is the input handed to the planner each iteration.
type PlanPayload struct {
	TraceID       string               `json:"trace_id"`
	Step          int                  `json:"step"`
	Prompt        string               `json:"prompt"`
	WorkingMemory []WorkingMemoryEntry `json:"working_memory"`
	AllowTools    bool                 `json:"allow_tools"`
	ToolWhitelist []string             `json:"tool_whitelist,omitempty"`
}

// Planner is the planning oracle consumed by the loop. Implementations
// must not fail; a backend problem is expressed as a degraded proposal.
// A planner that panics violates the contract and is not recovered here.
type Planner interface {
	NextStep(ctx context.Context, payload PlanPayload) Proposal
}

// Tracer receives run telemetry. Satisfied by *trace.Dispatcher.
type Tracer interface {
	Active() bool
	Emit(ev trace.Event)
}

// LoopOptions contains the dependencies for a Loop.
type LoopOptions struct {
	Planner  Planner
	Executor *tools.Executor
	Policy   Policy
	Tracer   Tracer
}

// Loop runs agent requests. It is stateless across runs and safe for
// concurrent use: each run owns its retry state, working memory, and
// transcript, and shares only the read-only registry and policy.
type Loop struct {
	planner  Planner
	executor *tools.Executor
	arbiter  Arbiter
	policy   Policy
	tracer   Tracer
}

// NewLoop creates a loop. Policy zero value is replaced by defaults.
func NewLoop(opts LoopOptions) *Loop {
	policy := opts.Policy
	if policy.MaxIterationsCap == 0 {
		policy = DefaultPolicy()
	}
	return &Loop{
		planner:  opts.Planner,
		executor: opts.Executor,
		policy:   policy,
		tracer:   opts.Tracer,
	}
}

// Policy returns the loop's active policy snapshot.
func (l *Loop) Policy() Policy {
	return l.policy
}

// Run executes one agent run to completion. The returned response is
// always well-formed; OK is false only on timeout or cancellation.
func (l *Loop) Run(ctx context.Context, userID string, req RunRequest) RunResponse {
	traceID := uuid.NewString()
	started := time.Now()

	if req.MaxIterations == 0 {
		req.MaxIterations = l.policy.MaxIterationsDefault
	}
	if req.TimeoutMS == 0 {
		req.TimeoutMS = DefaultTimeoutMS
	}
	maxIterations := ClampIterations(req.MaxIterations, l.policy)
	allowTools := req.ToolsAllowed()

	// An empty whitelist means no restriction, same as absent.
	var whitelist map[string]bool
	if len(req.ToolWhitelist) > 0 {
		whitelist = make(map[string]bool, len(req.ToolWhitelist))
		for _, name := range req.ToolWhitelist {
			whitelist[name] = true
		}
	}

	steps := []StepResult{}
	toolTraces := []ToolTrace{}
	workingMemory := []WorkingMemoryEntry{}
	retryState := NewRetryState()
	lastToolName := ""
	finalAnswer := ""
	finalized := false
	runErr := ""

	slog.Debug("Agent run started", "trace_id", traceID, "user_id", userID, "max_iterations", maxIterations, "allow_tools", allowTools)

	for i := 0; i < maxIterations; i++ {
		elapsed := time.Since(started).Milliseconds()
		if elapsed > int64(req.TimeoutMS) {
			runErr = fmt.Sprintf("agent timeout after %dms", elapsed)
			break
		}
		if ctx.Err() != nil {
			runErr = fmt.Sprintf("agent run cancelled after %dms: %v", elapsed, ctx.Err())
			break
		}

		proposal := l.planner.NextStep(ctx, PlanPayload{
			TraceID:       traceID,
			Step:          i,
			Prompt:        req.Prompt,
			WorkingMemory: workingMemory,
			AllowTools:    allowTools,
			ToolWhitelist: req.ToolWhitelist,
		})

		hasToolResult := false
		for _, entry := range workingMemory {
			if entry.Type == "tool_result" && entry.OK {
				hasToolResult = true
				break
			}
		}

		decision := l.arbiter.Decide(proposal, allowTools, l.policy.MinConfidenceToFinalize, hasToolResult)

		switch decision.Action {
		case ActionFinal:
			finalAnswer = decision.FinalText
			finalized = true
			l.appendStep(&steps, traceID, StepResult{
				StepIndex:  i,
				Thought:    decision.Thought,
				Action:     ActionFinal,
				FinalText:  decision.FinalText,
				Confidence: decision.Confidence,
				Notes:      reasonNotes(decision.Reason),
			})

		case ActionTool:
			name := decision.FunctionCall.Name
			args := decision.FunctionCall.Arguments
			lastToolName = name

			rec := l.executor.Execute(tools.Context{
				UserID:  userID,
				TraceID: traceID,
				Step:    i,
			}, name, args, whitelist)

			toolTraces = append(toolTraces, ToolTrace{
				Step:      i,
				Tool:      rec.ToolName,
				OK:        rec.OK,
				LatencyMS: rec.LatencyMS,
				Output:    rec.Output,
				Error:     rec.Error,
			})
			l.emitTool(traceID, toolTraces[len(toolTraces)-1])

			workingMemory = append(workingMemory, WorkingMemoryEntry{
				Type:   "tool_result",
				Step:   i,
				Tool:   rec.ToolName,
				OK:     rec.OK,
				Output: rec.Output,
				Error:  rec.Error,
			})

			l.appendStep(&steps, traceID, StepResult{
				StepIndex:    i,
				Thought:      decision.Thought,
				Action:       ActionTool,
				FunctionCall: &FunctionCall{Name: name, Arguments: args},
				Confidence:   decision.Confidence,
				Notes:        map[string]any{"tool_ok": rec.OK, "tool_error": rec.Error},
			})

			if !rec.OK {
				if retryState.CanRetry(name, l.policy) {
					retryState.MarkRetry(name)
					l.appendStep(&steps, traceID, StepResult{
						StepIndex:  i,
						Thought:    "Tool failed; retry authorized by policy.",
						Action:     ActionRetry,
						Confidence: floor(decision.Confidence - 0.1),
						Notes: map[string]any{
							"failed_tool":   name,
							"total_retries": retryState.TotalRetries,
							"tool_retries":  retryState.PerTool[name],
						},
					})
				} else {
					l.appendStep(&steps, traceID, StepResult{
						StepIndex:  i,
						Thought:    "Retry budget exhausted; switching to reflection.",
						Action:     ActionReflect,
						Confidence: floor(decision.Confidence - 0.2),
						Notes: map[string]any{
							"failed_tool":     name,
							"retry_exhausted": true,
						},
					})
				}
			}

		case ActionRetry:
			// Attribution uses the most recently attempted tool, which may
			// be empty if no tool was ever invoked; then only the global
			// budget gates the retry.
			if retryState.CanRetry(lastToolName, l.policy) {
				retryState.MarkRetry(lastToolName)
				thought := decision.Thought
				if thought == "" {
					thought = "Retry selected."
				}
				l.appendStep(&steps, traceID, StepResult{
					StepIndex:  i,
					Thought:    thought,
					Action:     ActionRetry,
					Confidence: decision.Confidence,
					Notes: map[string]any{
						"retry_target_tool": lastToolName,
						"total_retries":     retryState.TotalRetries,
						"tool_retries":      retryState.PerTool[lastToolName],
					},
				})
			} else {
				l.appendStep(&steps, traceID, StepResult{
					StepIndex:  i,
					Thought:    "Retry denied by policy budget.",
					Action:     ActionReflect,
					Confidence: floor(decision.Confidence - 0.2),
					Notes:      map[string]any{"retry_exhausted": true},
				})
			}

		case ActionReflect:
			l.appendStep(&steps, traceID, StepResult{
				StepIndex:  i,
				Thought:    decision.Thought,
				Action:     ActionReflect,
				Confidence: decision.Confidence,
				Notes:      reasonNotes(decision.Reason),
			})
		}

		if finalized {
			break
		}
	}

	if !finalized && runErr == "" {
		finalAnswer = "No final answer produced within iteration budget."
	}

	decisionTrace := map[string]any{
		"trace_id":       traceID,
		"iterations":     len(steps),
		"max_iterations": maxIterations,
		"timeout_ms":     req.TimeoutMS,
		"elapsed_ms":     time.Since(started).Milliseconds(),
		"retry_total":    retryState.TotalRetries,
		"retry_per_tool": retryState.PerTool,
		"policy": map[string]any{
			"min_confidence_to_finalize": l.policy.MinConfidenceToFinalize,
			"max_total_retries":          l.policy.Retry.MaxTotalRetries,
			"max_retries_per_tool":       l.policy.Retry.MaxRetriesPerTool,
		},
		"whitelist_active": whitelist != nil,
		"whitelist":        sortedWhitelist(whitelist),
	}

	resp := RunResponse{
		OK:            runErr == "",
		Answer:        finalAnswer,
		Steps:         steps,
		ToolTraces:    toolTraces,
		DecisionTrace: decisionTrace,
		Error:         runErr,
	}

	if l.tracer != nil && l.tracer.Active() {
		l.tracer.Emit(trace.Event{
			TraceID: traceID,
			Kind:    trace.KindFinal,
			Payload: map[string]any{
				"ok":             resp.OK,
				"answer":         resp.Answer,
				"error":          resp.Error,
				"decision_trace": decisionTrace,
			},
		})
	}

	slog.Info("Agent run finished", "trace_id", traceID, "ok", resp.OK, "steps", len(steps), "tool_calls", len(toolTraces), "elapsed_ms", decisionTrace["elapsed_ms"])
	return resp
}

func (l *Loop) appendStep(steps *[]StepResult, traceID string, step StepResult) {
	*steps = append(*steps, step)
	if l.tracer != nil && l.tracer.Active() {
		l.tracer.Emit(trace.Event{
			TraceID: traceID,
			Kind:    trace.KindStep,
			Payload: map[string]any{
				"step_index": step.StepIndex,
				"action":     string(step.Action),
				"thought":    step.Thought,
				"confidence": step.Confidence,
				"notes":      step.Notes,
			},
		})
	}
}

func (l *Loop) emitTool(traceID string, tt ToolTrace) {
	if l.tracer == nil || !l.tracer.Active() {
		return
	}
	l.tracer.Emit(trace.Event{
		TraceID: traceID,
		Kind:    trace.KindTool,
		Payload: map[string]any{
			"step":       tt.Step,
			"tool":       tt.Tool,
			"ok":         tt.OK,
			"latency_ms": tt.LatencyMS,
			"error":      tt.Error,
		},
	})
}

func reasonNotes(reason string) map[string]any {
	if reason == "" {
		return map[string]any{}
	}
	return map[string]any{"arbiter_reason": reason}
}

func floor(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	return confidence
}

func sortedWhitelist(whitelist map[string]bool) []string {
	if whitelist == nil {
		return nil
	}
	names := make([]string, 0, len(whitelist))
	for name := range whitelist {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
