package agent

import (
	"math"
	"testing"
)

const minConfidence = 0.45

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestArbiterInvalidAction(t *testing.T) {
	var a Arbiter
	d := a.Decide(Proposal{Action: "explode", Confidence: 0.9}, true, minConfidence, false)

	if d.Action != ActionReflect {
		t.Errorf("Action = %s, want reflect", d.Action)
	}
	if d.Reason != ReasonInvalidAction {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonInvalidAction)
	}
	if d.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", d.Confidence)
	}
}

func TestArbiterToolsDisabled(t *testing.T) {
	var a Arbiter
	p := Proposal{
		Action:       "tool",
		Confidence:   0.7,
		FunctionCall: &FunctionCall{Name: "echo"},
	}
	d := a.Decide(p, false, minConfidence, false)

	if d.Action != ActionReflect || d.Reason != ReasonToolsDisabled {
		t.Fatalf("got action=%s reason=%q", d.Action, d.Reason)
	}
	if !almostEqual(d.Confidence, 0.5) {
		t.Errorf("Confidence = %v, want 0.5", d.Confidence)
	}
	if d.FunctionCall != nil {
		t.Error("FunctionCall should be stripped on downgrade")
	}
}

func TestArbiterInvalidFunctionCall(t *testing.T) {
	var a Arbiter
	cases := []struct {
		name string
		fc   *FunctionCall
	}{
		{"nil", nil},
		{"empty_name", &FunctionCall{Name: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := a.Decide(Proposal{Action: "tool", Confidence: 0.1, FunctionCall: tc.fc}, true, minConfidence, false)
			if d.Action != ActionReflect || d.Reason != ReasonInvalidFunctionCall {
				t.Fatalf("got action=%s reason=%q", d.Action, d.Reason)
			}
			if d.Confidence != 0 {
				t.Errorf("Confidence = %v, want floored at 0", d.Confidence)
			}
		})
	}
}

func TestArbiterEmptyFinalText(t *testing.T) {
	var a Arbiter
	d := a.Decide(Proposal{Action: "final", Confidence: 0.9, FinalText: "   "}, true, minConfidence, true)

	if d.Action != ActionReflect || d.Reason != ReasonEmptyFinalText {
		t.Fatalf("got action=%s reason=%q", d.Action, d.Reason)
	}
	if !almostEqual(d.Confidence, 0.7) {
		t.Errorf("Confidence = %v, want 0.7", d.Confidence)
	}
}

func TestArbiterLowConfidenceFinalize(t *testing.T) {
	var a Arbiter
	p := Proposal{Action: "final", Confidence: 0.3, FinalText: "done"}

	d := a.Decide(p, true, minConfidence, false)
	if d.Action != ActionReflect || d.Reason != ReasonLowConfidenceFinalize {
		t.Fatalf("got action=%s reason=%q", d.Action, d.Reason)
	}
	// The evidence gate keeps the planner's confidence intact.
	if !almostEqual(d.Confidence, 0.3) {
		t.Errorf("Confidence = %v, want unchanged 0.3", d.Confidence)
	}
	if d.FinalText != "" {
		t.Error("FinalText should be stripped on downgrade")
	}

	// Evidence in working memory lifts the gate.
	d = a.Decide(p, true, minConfidence, true)
	if d.Action != ActionFinal {
		t.Errorf("with evidence, Action = %s, want final", d.Action)
	}
	if d.FinalText != "done" {
		t.Errorf("FinalText = %q, want %q", d.FinalText, "done")
	}
}

func TestArbiterPassThroughStripsFields(t *testing.T) {
	var a Arbiter

	d := a.Decide(Proposal{
		Action:       "reflect",
		Thought:      "thinking",
		Confidence:   0.5,
		FunctionCall: &FunctionCall{Name: "echo"},
		FinalText:    "leftover",
	}, true, minConfidence, false)

	if d.Action != ActionReflect || d.Reason != "" {
		t.Fatalf("got action=%s reason=%q", d.Action, d.Reason)
	}
	if d.FunctionCall != nil || d.FinalText != "" {
		t.Error("reflect decision must not carry function_call or final_text")
	}

	d = a.Decide(Proposal{
		Action:       "tool",
		Confidence:   0.6,
		FunctionCall: &FunctionCall{Name: "echo", Arguments: map[string]any{"text": "hi"}},
		FinalText:    "leftover",
	}, true, minConfidence, false)
	if d.Action != ActionTool || d.FunctionCall == nil || d.FunctionCall.Name != "echo" {
		t.Fatalf("tool pass-through broken: %+v", d)
	}
	if d.FinalText != "" {
		t.Error("tool decision must not carry final_text")
	}
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		raw  string
		want Action
		ok   bool
	}{
		{"tool", ActionTool, true},
		{" FINAL ", ActionFinal, true},
		{"Retry", ActionRetry, true},
		{"reflect", ActionReflect, true},
		{"", ActionReflect, false},
		{"finish", ActionReflect, false},
	}
	for _, tc := range cases {
		got, ok := ParseAction(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseAction(%q) = (%s, %v), want (%s, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
