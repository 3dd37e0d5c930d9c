package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cognos-ai/cognos/internal/tools"
)

// scriptPlanner replays a fixed list of proposals; the last one repeats.
type scriptPlanner struct {
	proposals []Proposal
	calls     int
}

func (s *scriptPlanner) NextStep(_ context.Context, _ PlanPayload) Proposal {
	idx := s.calls
	if idx >= len(s.proposals) {
		idx = len(s.proposals) - 1
	}
	s.calls++
	return s.proposals[idx]
}

// sleepPlanner delays before reflecting, to drive the timeout path.
type sleepPlanner struct {
	delay time.Duration
}

func (s *sleepPlanner) NextStep(_ context.Context, _ PlanPayload) Proposal {
	time.Sleep(s.delay)
	return Proposal{Action: "reflect", Thought: "slow", Confidence: 0.4}
}

// flakyTool always fails.
type flakyTool struct{}

func (flakyTool) Name() string                       { return "flaky" }
func (flakyTool) Description() string                { return "Always fails." }
func (flakyTool) Parameters() map[string]any         { return map[string]any{"type": "object"} }
func (flakyTool) Validate(args map[string]any) error { return nil }
func (flakyTool) Run(ctx tools.Context, args map[string]any) tools.Output {
	return tools.Fail("upstream unavailable")
}

func newTestLoop(t *testing.T, planner Planner, extra ...tools.Tool) *Loop {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range append([]tools.Tool{tools.NewEchoTool(), tools.NewNowTool()}, extra...) {
		if err := registry.Register(tool); err != nil {
			t.Fatalf("register %s: %v", tool.Name(), err)
		}
	}
	return NewLoop(LoopOptions{
		Planner:  planner,
		Executor: tools.NewExecutor(registry),
	})
}

func TestLoopToolThenFinal(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{
			Action:       "tool",
			Thought:      "Need current time.",
			Confidence:   0.62,
			FunctionCall: &FunctionCall{Name: "now", Arguments: map[string]any{"tz": "UTC"}},
		},
		{
			Action:     "final",
			Thought:    "Tool result available.",
			Confidence: 0.71,
			FinalText:  "It is now.",
		},
	}}
	loop := newTestLoop(t, planner)

	resp := loop.Run(context.Background(), "u1", RunRequest{Prompt: "what time is it", MaxIterations: 4})

	if !resp.OK {
		t.Fatalf("run failed: %s", resp.Error)
	}
	if resp.Answer != "It is now." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(resp.Steps))
	}
	if resp.Steps[0].Action != ActionTool || resp.Steps[1].Action != ActionFinal {
		t.Errorf("step actions = %s, %s", resp.Steps[0].Action, resp.Steps[1].Action)
	}
	if len(resp.ToolTraces) != 1 || !resp.ToolTraces[0].OK || resp.ToolTraces[0].Tool != "now" {
		t.Errorf("tool traces = %+v", resp.ToolTraces)
	}
	if got := resp.DecisionTrace["iterations"]; got != 2 {
		t.Errorf("decision_trace iterations = %v, want 2", got)
	}
}

func TestLoopToolsDisabled(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{
			Action:       "tool",
			Confidence:   0.8,
			FunctionCall: &FunctionCall{Name: "echo", Arguments: map[string]any{"text": "hi"}},
		},
	}}
	loop := newTestLoop(t, planner)

	off := false
	resp := loop.Run(context.Background(), "u1", RunRequest{
		Prompt:        "echo something",
		MaxIterations: 3,
		AllowTools:    &off,
	})

	if !resp.OK {
		t.Fatalf("run failed: %s", resp.Error)
	}
	if len(resp.Steps) != 3 {
		t.Fatalf("Steps = %d, want 3", len(resp.Steps))
	}
	for _, step := range resp.Steps {
		if step.Action != ActionReflect {
			t.Errorf("step %d action = %s, want reflect", step.StepIndex, step.Action)
		}
		if reason := step.Notes["arbiter_reason"]; reason != ReasonToolsDisabled {
			t.Errorf("step %d reason = %v, want %s", step.StepIndex, reason, ReasonToolsDisabled)
		}
	}
	if len(resp.ToolTraces) != 0 {
		t.Errorf("no tool should have executed, got %d traces", len(resp.ToolTraces))
	}
	if !strings.Contains(resp.Answer, "No final answer") {
		t.Errorf("Answer = %q, want exhaustion notice", resp.Answer)
	}
}

func TestLoopRetryBudgetExhaustion(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{
			Action:       "tool",
			Confidence:   0.6,
			FunctionCall: &FunctionCall{Name: "flaky"},
		},
	}}
	loop := newTestLoop(t, planner, flakyTool{})

	resp := loop.Run(context.Background(), "u1", RunRequest{Prompt: "do it", MaxIterations: 3})

	if !resp.OK {
		t.Fatalf("run failed: %s", resp.Error)
	}
	// Each iteration appends a tool step plus a retry or reflect step.
	if len(resp.Steps) != 6 {
		t.Fatalf("Steps = %d, want 6: %+v", len(resp.Steps), resp.Steps)
	}
	if resp.Steps[1].Action != ActionRetry || resp.Steps[3].Action != ActionRetry {
		t.Errorf("first two failures should authorize retries, got %s and %s", resp.Steps[1].Action, resp.Steps[3].Action)
	}
	last := resp.Steps[5]
	if last.Action != ActionReflect {
		t.Errorf("third failure action = %s, want reflect", last.Action)
	}
	if exhausted, _ := last.Notes["retry_exhausted"].(bool); !exhausted {
		t.Errorf("notes = %v, want retry_exhausted true", last.Notes)
	}
	if got := resp.DecisionTrace["retry_total"]; got != 2 {
		t.Errorf("retry_total = %v, want 2", got)
	}
	for _, tt := range resp.ToolTraces {
		if tt.OK {
			t.Errorf("flaky trace should be failed: %+v", tt)
		}
	}
}

func TestLoopRetryActionWithoutPriorTool(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{Action: "retry", Thought: "Try again.", Confidence: 0.5},
		{Action: "final", FinalText: "done", Confidence: 0.9},
	}}
	loop := newTestLoop(t, planner)

	resp := loop.Run(context.Background(), "u1", RunRequest{Prompt: "anything", MaxIterations: 4})

	if !resp.OK || resp.Answer != "done" {
		t.Fatalf("resp = %+v", resp)
	}
	first := resp.Steps[0]
	if first.Action != ActionRetry {
		t.Fatalf("first action = %s, want retry", first.Action)
	}
	if target, _ := first.Notes["retry_target_tool"].(string); target != "" {
		t.Errorf("retry_target_tool = %q, want empty", target)
	}
	if total := first.Notes["total_retries"]; total != 1 {
		t.Errorf("total_retries = %v, want 1", total)
	}
}

func TestLoopEmptyFinalTextNeverFinalizes(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{Action: "final", Confidence: 0.9, FinalText: ""},
	}}
	loop := newTestLoop(t, planner)

	resp := loop.Run(context.Background(), "u1", RunRequest{Prompt: "x", MaxIterations: 2})

	if !resp.OK {
		t.Fatalf("run failed: %s", resp.Error)
	}
	for _, step := range resp.Steps {
		if step.Action == ActionFinal {
			t.Error("empty final_text must not finalize")
		}
	}
	if !strings.Contains(resp.Answer, "No final answer") {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestLoopWhitelistBlocksTool(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{
			Action:       "tool",
			Confidence:   0.6,
			FunctionCall: &FunctionCall{Name: "echo", Arguments: map[string]any{"text": "hi"}},
		},
	}}
	loop := newTestLoop(t, planner)

	resp := loop.Run(context.Background(), "u1", RunRequest{
		Prompt:        "echo hi",
		MaxIterations: 1,
		ToolWhitelist: []string{"now"},
	})

	if len(resp.ToolTraces) != 1 {
		t.Fatalf("ToolTraces = %d, want 1", len(resp.ToolTraces))
	}
	tt := resp.ToolTraces[0]
	if tt.OK || !strings.Contains(tt.Error, "whitelist") {
		t.Errorf("trace = %+v, want whitelist denial", tt)
	}
	if active, _ := resp.DecisionTrace["whitelist_active"].(bool); !active {
		t.Error("whitelist_active should be true")
	}
	names, _ := resp.DecisionTrace["whitelist"].([]string)
	if len(names) != 1 || names[0] != "now" {
		t.Errorf("whitelist = %v, want [now]", names)
	}
}

func TestLoopEmptyWhitelistAllowsAllTools(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{
			Action:       "tool",
			Confidence:   0.6,
			FunctionCall: &FunctionCall{Name: "echo", Arguments: map[string]any{"text": "hi"}},
		},
		{Action: "final", FinalText: "done", Confidence: 0.9},
	}}
	loop := newTestLoop(t, planner)

	resp := loop.Run(context.Background(), "u1", RunRequest{
		Prompt:        "echo hi",
		MaxIterations: 3,
		ToolWhitelist: []string{},
	})

	if !resp.OK || resp.Answer != "done" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.ToolTraces) != 1 || !resp.ToolTraces[0].OK {
		t.Fatalf("ToolTraces = %+v, want one successful echo run", resp.ToolTraces)
	}
	if active, _ := resp.DecisionTrace["whitelist_active"].(bool); active {
		t.Error("whitelist_active should be false for an empty whitelist")
	}
}

func TestLoopTimeout(t *testing.T) {
	loop := newTestLoop(t, &sleepPlanner{delay: 10 * time.Millisecond})

	resp := loop.Run(context.Background(), "u1", RunRequest{
		Prompt:        "slow",
		MaxIterations: 5,
		TimeoutMS:     1,
	})

	if resp.OK {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(resp.Error, "agent timeout") {
		t.Errorf("Error = %q", resp.Error)
	}
	if len(resp.Steps) >= 5 {
		t.Errorf("timeout should stop the loop early, got %d steps", len(resp.Steps))
	}
}

func TestLoopCancellation(t *testing.T) {
	loop := newTestLoop(t, &scriptPlanner{proposals: []Proposal{
		{Action: "reflect", Confidence: 0.4},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := loop.Run(ctx, "u1", RunRequest{Prompt: "x", MaxIterations: 3})

	if resp.OK {
		t.Fatal("expected cancellation failure")
	}
	if !strings.Contains(resp.Error, "cancelled") {
		t.Errorf("Error = %q", resp.Error)
	}
	if len(resp.Steps) != 0 {
		t.Errorf("Steps = %d, want 0", len(resp.Steps))
	}
}

func TestLoopDecisionTracePolicy(t *testing.T) {
	loop := newTestLoop(t, &scriptPlanner{proposals: []Proposal{
		{Action: "final", FinalText: "ok", Confidence: 0.9},
	}})

	resp := loop.Run(context.Background(), "u1", RunRequest{Prompt: "x", MaxIterations: 1})

	policy, ok := resp.DecisionTrace["policy"].(map[string]any)
	if !ok {
		t.Fatalf("policy missing from decision trace: %v", resp.DecisionTrace)
	}
	want := DefaultPolicy()
	if policy["min_confidence_to_finalize"] != want.MinConfidenceToFinalize {
		t.Errorf("min_confidence_to_finalize = %v", policy["min_confidence_to_finalize"])
	}
	if policy["max_total_retries"] != want.Retry.MaxTotalRetries {
		t.Errorf("max_total_retries = %v", policy["max_total_retries"])
	}
	if id, _ := resp.DecisionTrace["trace_id"].(string); id == "" {
		t.Error("trace_id should be set")
	}
}

func TestLoopIterationClamp(t *testing.T) {
	planner := &scriptPlanner{proposals: []Proposal{
		{Action: "reflect", Confidence: 0.4, Thought: "loop"},
	}}
	loop := newTestLoop(t, planner)

	resp := loop.Run(context.Background(), "u1", RunRequest{Prompt: "x", MaxIterations: 100})

	maxIter := DefaultPolicy().MaxIterationsCap
	if len(resp.Steps) != maxIter {
		t.Errorf("Steps = %d, want clamped to %d", len(resp.Steps), maxIter)
	}
	if got := fmt.Sprint(resp.DecisionTrace["max_iterations"]); got != fmt.Sprint(maxIter) {
		t.Errorf("max_iterations = %s, want %d", got, maxIter)
	}
}
