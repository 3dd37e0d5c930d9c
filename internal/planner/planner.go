// Package planner provides the planning oracle consumed by the agent
// loop. Planners must never fail: every backend absorbs its own errors
// and degrades to a deterministic proposal.
package planner

import (
	"context"

	"github.com/cognos-ai/cognos/internal/agent"
)

// Payload aliases the loop-side planning input so implementations and
// the loop share one definition.
type Payload = agent.PlanPayload

// Planner proposes the next step for an objective. Implementations must
// return within the caller's deadline and must not fail; a backend
// problem is expressed as a degraded proposal, never an error. It
// structurally satisfies the loop's agent.Planner interface.
type Planner interface {
	NextStep(ctx context.Context, payload Payload) agent.Proposal
}
