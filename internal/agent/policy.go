package agent

import "time"

// RetryPolicy bounds how often a failing tool may be retried within a run.
type RetryPolicy struct {
	MaxTotalRetries   int
	MaxRetriesPerTool int
	BackoffBase       time.Duration
}

// Policy is the immutable iteration/retry configuration for the loop.
// It is constructed once and shared read-only across runs; there is no
// process-wide default instance.
type Policy struct {
	MaxIterationsDefault    int
	MaxIterationsCap        int
	MinConfidenceToFinalize float64
	Retry                   RetryPolicy
}

// DefaultPolicy returns the stock policy values.
func DefaultPolicy() Policy {
	return Policy{
		MaxIterationsDefault:    6,
		MaxIterationsCap:        20,
		MinConfidenceToFinalize: 0.45,
		Retry: RetryPolicy{
			MaxTotalRetries:   3,
			MaxRetriesPerTool: 2,
			BackoffBase:       150 * time.Millisecond,
		},
	}
}

// ClampIterations bounds a requested iteration count to [1, cap].
func ClampIterations(requested int, p Policy) int {
	if requested < 1 {
		return 1
	}
	if requested > p.MaxIterationsCap {
		return p.MaxIterationsCap
	}
	return requested
}

// RetryState tracks retry budget usage for a single run. It is owned and
// mutated only by the run's loop. TotalRetries counts every authorized
// retry including those with no attributable tool, so it is not required
// to equal the sum of PerTool.
type RetryState struct {
	TotalRetries int
	PerTool      map[string]int
}

// NewRetryState returns an empty per-run retry counter.
func NewRetryState() *RetryState {
	return &RetryState{PerTool: make(map[string]int)}
}

// CanRetry reports whether policy permits one more retry. The global
// budget always applies; the per-tool ceiling applies only when a tool
// name is attributable.
func (s *RetryState) CanRetry(toolName string, p Policy) bool {
	if s.TotalRetries >= p.Retry.MaxTotalRetries {
		return false
	}
	if toolName == "" {
		return true
	}
	return s.PerTool[toolName] < p.Retry.MaxRetriesPerTool
}

// MarkRetry consumes one retry. Callers must check CanRetry immediately
// before marking; the loop is single-threaded per run so no lock is held.
func (s *RetryState) MarkRetry(toolName string) {
	s.TotalRetries++
	if toolName != "" {
		s.PerTool[toolName]++
	}
}
