package agent

import "testing"

func TestClampIterations(t *testing.T) {
	p := DefaultPolicy()

	cases := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero", 0, 1},
		{"negative", -5, 1},
		{"one", 1, 1},
		{"in_range", 7, 7},
		{"at_cap", 20, 20},
		{"above_cap", 50, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClampIterations(tc.requested, p)
			if got != tc.want {
				t.Errorf("ClampIterations(%d) = %d, want %d", tc.requested, got, tc.want)
			}
			// Clamping an already clamped value changes nothing.
			if again := ClampIterations(got, p); again != got {
				t.Errorf("clamp not idempotent: %d -> %d", got, again)
			}
		})
	}
}

func TestRetryStatePerToolBudget(t *testing.T) {
	p := DefaultPolicy()
	s := NewRetryState()

	if !s.CanRetry("search", p) {
		t.Fatal("fresh state should allow retry")
	}
	s.MarkRetry("search")
	s.MarkRetry("search")

	if s.CanRetry("search", p) {
		t.Error("per-tool budget of 2 should be exhausted for search")
	}
	if !s.CanRetry("other", p) {
		t.Error("other tool should still have budget")
	}
	if s.TotalRetries != 2 {
		t.Errorf("TotalRetries = %d, want 2", s.TotalRetries)
	}
}

func TestRetryStateGlobalBudgetWins(t *testing.T) {
	p := DefaultPolicy()
	s := NewRetryState()

	// Exhaust the global budget across different tools.
	s.MarkRetry("a")
	s.MarkRetry("b")
	s.MarkRetry("c")

	if s.CanRetry("fresh", p) {
		t.Error("global budget should gate a tool with unused per-tool budget")
	}
	if s.CanRetry("", p) {
		t.Error("global budget should gate unattributed retries too")
	}
}

func TestRetryStateUnattributed(t *testing.T) {
	p := DefaultPolicy()
	s := NewRetryState()

	// Unattributed retries count only against the global budget.
	s.MarkRetry("")
	s.MarkRetry("")

	if s.TotalRetries != 2 {
		t.Errorf("TotalRetries = %d, want 2", s.TotalRetries)
	}
	if len(s.PerTool) != 0 {
		t.Errorf("PerTool = %v, want empty", s.PerTool)
	}
	if !s.CanRetry("", p) {
		t.Error("one global retry should remain")
	}
	s.MarkRetry("")
	if s.CanRetry("", p) {
		t.Error("global budget of 3 should be exhausted")
	}
}
