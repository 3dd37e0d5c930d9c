package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cognos-ai/cognos/internal/agent"
	"github.com/cognos-ai/cognos/internal/provider"
	"github.com/cognos-ai/cognos/internal/tools"
)

// workingMemoryWindow limits how many trailing entries are serialized
// into the planning prompt.
const workingMemoryWindow = 8

const systemPrompt = `You are the planning core of an autonomous agent.
Return strictly one JSON object per turn with fields:
- action: one of ["tool","reflect","retry","final"]
- thought: short internal rationale
- confidence: float 0..1
- function_call: optional object {name:string, arguments:object}
- final_text: required when action="final"

Rules:
1) Prefer tool usage when a concrete external/actionable check is needed.
2) If previous tool failed, either retry with corrected arguments or reflect.
3) Stop with action="final" when enough evidence exists.
4) Never output markdown, code fences, or prose outside JSON.
`

// LLMPlanner drives planning through an OpenAI-compatible chat endpoint.
// Any transport or parse failure degrades to the embedded fallback; the
// loop never sees an error from this adapter.
type LLMPlanner struct {
	llm      provider.LLMProvider
	registry *tools.Registry
	fallback *FallbackPlanner
	model    string
}

// NewLLMPlanner creates a planner over an LLM provider. The registry
// supplies tool definitions for native function calling.
func NewLLMPlanner(llm provider.LLMProvider, registry *tools.Registry, model string) *LLMPlanner {
	return &LLMPlanner{
		llm:      llm,
		registry: registry,
		fallback: NewFallbackPlanner(),
		model:    model,
	}
}

func (p *LLMPlanner) NextStep(ctx context.Context, payload Payload) agent.Proposal {
	req := &provider.ChatRequest{
		Messages:       p.buildMessages(payload),
		Model:          p.model,
		MaxTokens:      1024,
		Temperature:    0.1,
		ResponseFormat: "json_object",
	}
	if payload.AllowTools {
		req.Tools = p.registry.Definitions(payload.ToolWhitelist)
	}

	resp, err := p.llm.Chat(ctx, req)
	if err != nil {
		slog.Warn("Planner LLM call failed, using fallback", "trace_id", payload.TraceID, "step", payload.Step, "error", err)
		return p.fallback.NextStep(ctx, payload)
	}

	// Native function call takes precedence over the JSON protocol.
	if payload.AllowTools && len(resp.ToolCalls) > 0 {
		tc := resp.ToolCalls[0]
		return agent.Proposal{
			Action:  "tool",
			Thought: "LLM selected function call.",
			FunctionCall: &agent.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
			Confidence: 0.6,
		}
	}

	proposal, ok := parseProposal(resp.Content)
	if !ok {
		slog.Warn("Planner returned unparseable output, using fallback", "trace_id", payload.TraceID, "step", payload.Step)
		return p.fallback.NextStep(ctx, payload)
	}
	if proposal.Action == "tool" && (!payload.AllowTools || proposal.FunctionCall == nil) {
		return agent.Proposal{
			Action:     "reflect",
			Thought:    "Tool requested but unavailable/invalid.",
			Confidence: proposal.Confidence,
		}
	}
	return proposal
}

func (p *LLMPlanner) buildMessages(payload Payload) []provider.Message {
	window := payload.WorkingMemory
	if len(window) > workingMemoryWindow {
		window = window[len(window)-workingMemoryWindow:]
	}
	wmCompact, _ := json.Marshal(window)

	user := fmt.Sprintf(
		"Step: %d\nUser objective: %s\nRecent working memory (JSON): %s\nReturn next-step JSON only.",
		payload.Step, payload.Prompt, string(wmCompact),
	)
	return []provider.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

// parseProposal decodes the planner's JSON protocol. Returns ok=false
// when the content is not a JSON object; action validation is left to
// the arbiter.
func parseProposal(content string) (agent.Proposal, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return agent.Proposal{}, false
	}
	var raw struct {
		Action       string         `json:"action"`
		Thought      string         `json:"thought"`
		Confidence   float64        `json:"confidence"`
		FunctionCall map[string]any `json:"function_call"`
		FinalText    string         `json:"final_text"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return agent.Proposal{}, false
	}

	proposal := agent.Proposal{
		Action:     raw.Action,
		Thought:    raw.Thought,
		Confidence: raw.Confidence,
		FinalText:  raw.FinalText,
	}
	if raw.FunctionCall != nil {
		name, _ := raw.FunctionCall["name"].(string)
		args, _ := raw.FunctionCall["arguments"].(map[string]any)
		proposal.FunctionCall = &agent.FunctionCall{Name: name, Arguments: args}
	}
	return proposal, true
}
