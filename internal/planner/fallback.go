package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognos-ai/cognos/internal/agent"
)

// FallbackPlanner is the local deterministic oracle used when no LLM is
// configured. It proposes a time lookup for time-related objectives,
// finalizes once a successful tool result exists, and reflects otherwise.
type FallbackPlanner struct{}

func NewFallbackPlanner() *FallbackPlanner { return &FallbackPlanner{} }

func (f *FallbackPlanner) NextStep(_ context.Context, payload Payload) agent.Proposal {
	if payload.Step == 0 && payload.AllowTools && strings.Contains(strings.ToLower(payload.Prompt), "time") {
		return agent.Proposal{
			Action:  "tool",
			Thought: "Need current time.",
			FunctionCall: &agent.FunctionCall{
				Name:      "now",
				Arguments: map[string]any{"tz": "UTC"},
			},
			Confidence: 0.62,
		}
	}

	if last, ok := lastEntry(payload.WorkingMemory); ok && last.Type == "tool_result" && last.OK {
		return agent.Proposal{
			Action:     "final",
			Thought:    "Tool result available.",
			FinalText:  fmt.Sprintf("Result: %v", last.Output),
			Confidence: 0.71,
		}
	}

	return agent.Proposal{
		Action:     "reflect",
		Thought:    fmt.Sprintf("Need more evidence for: %s", payload.Prompt),
		Confidence: 0.35,
	}
}

func lastEntry(wm []agent.WorkingMemoryEntry) (agent.WorkingMemoryEntry, bool) {
	if len(wm) == 0 {
		return agent.WorkingMemoryEntry{}, false
	}
	return wm[len(wm)-1], true
}
