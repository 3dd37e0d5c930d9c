package agent

import "strings"

// Arbiter is the deterministic gate between raw planner proposals and the
// loop dispatcher. It normalizes the action, downgrades malformed or
// disallowed proposals to reflect with a machine-readable reason, and
// strips fields that do not belong to the decided action. It performs no
// I/O and holds no state.
type Arbiter struct{}

// Gating reasons emitted on downgraded decisions.
const (
	ReasonInvalidAction         = "invalid_action"
	ReasonToolsDisabled         = "tools_disabled"
	ReasonInvalidFunctionCall   = "invalid_function_call"
	ReasonEmptyFinalText        = "empty_final_text"
	ReasonLowConfidenceFinalize = "low_confidence_finalize"
)

// confidencePenalty is applied when a gate fires on a malformed or
// disallowed proposal. The low-confidence finalize gate is evidentiary,
// not a planner error, and leaves confidence untouched.
const confidencePenalty = 0.2

// Decide judges one planner proposal. hasToolResult reports whether any
// successful tool result already exists in working memory.
func (Arbiter) Decide(p Proposal, allowTools bool, minConfidenceToFinalize float64, hasToolResult bool) Decision {
	action, ok := ParseAction(p.Action)
	if !ok {
		return Decision{
			Action:     ActionReflect,
			Thought:    "Invalid planner action normalized to reflect.",
			Confidence: 0,
			Reason:     ReasonInvalidAction,
		}
	}

	if action == ActionTool {
		if !allowTools {
			return Decision{
				Action:     ActionReflect,
				Thought:    "Tools are disabled by request.",
				Confidence: penalize(p.Confidence),
				Reason:     ReasonToolsDisabled,
			}
		}
		if p.FunctionCall == nil || strings.TrimSpace(p.FunctionCall.Name) == "" {
			return Decision{
				Action:     ActionReflect,
				Thought:    "Invalid function_call payload.",
				Confidence: penalize(p.Confidence),
				Reason:     ReasonInvalidFunctionCall,
			}
		}
	}

	if action == ActionFinal {
		if strings.TrimSpace(p.FinalText) == "" {
			return Decision{
				Action:     ActionReflect,
				Thought:    "Finalization blocked: empty final_text.",
				Confidence: penalize(p.Confidence),
				Reason:     ReasonEmptyFinalText,
			}
		}
		if p.Confidence < minConfidenceToFinalize && !hasToolResult {
			return Decision{
				Action:     ActionReflect,
				Thought:    "Finalization blocked: low confidence without evidence.",
				Confidence: p.Confidence,
				Reason:     ReasonLowConfidenceFinalize,
			}
		}
	}

	d := Decision{
		Action:     action,
		Thought:    p.Thought,
		Confidence: p.Confidence,
	}
	if action == ActionTool {
		d.FunctionCall = p.FunctionCall
	}
	if action == ActionFinal {
		d.FinalText = p.FinalText
	}
	return d
}

func penalize(confidence float64) float64 {
	c := confidence - confidencePenalty
	if c < 0 {
		return 0
	}
	return c
}
