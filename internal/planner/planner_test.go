package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/cognos-ai/cognos/internal/agent"
)

func TestFallbackProposesTimeLookup(t *testing.T) {
	f := NewFallbackPlanner()

	p := f.NextStep(context.Background(), Payload{
		Step:       0,
		Prompt:     "What time is it in Berlin?",
		AllowTools: true,
	})
	if p.Action != "tool" {
		t.Fatalf("Action = %q, want tool", p.Action)
	}
	if p.FunctionCall == nil || p.FunctionCall.Name != "now" {
		t.Errorf("FunctionCall = %+v", p.FunctionCall)
	}
}

func TestFallbackFinalizesOnToolResult(t *testing.T) {
	f := NewFallbackPlanner()

	p := f.NextStep(context.Background(), Payload{
		Step:   1,
		Prompt: "what time is it",
		WorkingMemory: []agent.WorkingMemoryEntry{
			{Type: "tool_result", Step: 0, Tool: "now", OK: true, Output: map[string]any{"utc_now": "x"}},
		},
		AllowTools: true,
	})
	if p.Action != "final" {
		t.Fatalf("Action = %q, want final", p.Action)
	}
	if !strings.HasPrefix(p.FinalText, "Result:") {
		t.Errorf("FinalText = %q", p.FinalText)
	}
}

func TestFallbackReflectsOtherwise(t *testing.T) {
	f := NewFallbackPlanner()

	cases := []Payload{
		{Step: 0, Prompt: "what time is it", AllowTools: false},
		{Step: 0, Prompt: "summarize this", AllowTools: true},
		{Step: 2, Prompt: "what time is it", AllowTools: true, WorkingMemory: []agent.WorkingMemoryEntry{
			{Type: "tool_result", Step: 1, Tool: "now", OK: false, Error: "failed"},
		}},
	}
	for i, payload := range cases {
		p := f.NextStep(context.Background(), payload)
		if p.Action != "reflect" {
			t.Errorf("case %d: Action = %q, want reflect", i, p.Action)
		}
	}
}

func TestParseProposal(t *testing.T) {
	p, ok := parseProposal(`{"action":"tool","thought":"check","confidence":0.8,"function_call":{"name":"now","arguments":{"tz":"UTC"}}}`)
	if !ok {
		t.Fatal("expected parse success")
	}
	if p.Action != "tool" || p.Confidence != 0.8 {
		t.Errorf("proposal = %+v", p)
	}
	if p.FunctionCall == nil || p.FunctionCall.Name != "now" || p.FunctionCall.Arguments["tz"] != "UTC" {
		t.Errorf("FunctionCall = %+v", p.FunctionCall)
	}

	p, ok = parseProposal(`{"action":"final","final_text":"done","confidence":0.9}`)
	if !ok || p.FinalText != "done" {
		t.Errorf("final proposal = %+v ok=%v", p, ok)
	}
}

func TestParseProposalRejectsNonJSON(t *testing.T) {
	for _, content := range []string{"", "  ", "not json", "```json\n{}\n```"} {
		if _, ok := parseProposal(content); ok {
			t.Errorf("parseProposal(%q) should fail", content)
		}
	}
}
