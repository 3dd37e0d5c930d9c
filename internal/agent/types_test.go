package agent

import (
	"strings"
	"testing"
)

func TestRunRequestValidateDefaults(t *testing.T) {
	p := DefaultPolicy()
	req := RunRequest{Prompt: "hello"}

	if err := req.Validate(p); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if req.MaxIterations != p.MaxIterationsDefault {
		t.Errorf("MaxIterations = %d, want %d", req.MaxIterations, p.MaxIterationsDefault)
	}
	if req.TimeoutMS != DefaultTimeoutMS {
		t.Errorf("TimeoutMS = %d, want %d", req.TimeoutMS, DefaultTimeoutMS)
	}
	if !req.ToolsAllowed() {
		t.Error("ToolsAllowed() should default to true")
	}
}

func TestRunRequestValidateRejects(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name    string
		req     RunRequest
		wantSub string
	}{
		{"empty_prompt", RunRequest{Prompt: "  "}, "prompt"},
		{"iterations_too_high", RunRequest{Prompt: "x", MaxIterations: 21}, "max_iterations"},
		{"iterations_negative", RunRequest{Prompt: "x", MaxIterations: -1}, "max_iterations"},
		{"timeout_too_low", RunRequest{Prompt: "x", TimeoutMS: 500}, "timeout_ms"},
		{"timeout_too_high", RunRequest{Prompt: "x", TimeoutMS: 500000}, "timeout_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate(p)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestRunRequestToolsAllowedExplicit(t *testing.T) {
	off := false
	req := RunRequest{Prompt: "x", AllowTools: &off}
	if req.ToolsAllowed() {
		t.Error("explicit false should disable tools")
	}
	on := true
	req.AllowTools = &on
	if !req.ToolsAllowed() {
		t.Error("explicit true should enable tools")
	}
}
