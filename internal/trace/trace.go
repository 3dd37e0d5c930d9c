// Package trace publishes run telemetry to an external sink. The loop
// treats publishing as fire-and-forget: a slow or absent broker never
// blocks or fails a run.
package trace

import (
	"context"
	"time"
)

// Event kinds emitted during a run.
const (
	KindStep  = "step"
	KindTool  = "tool"
	KindFinal = "final"
)

// Event is one published telemetry record.
type Event struct {
	TraceID string         `json:"trace_id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	// Active reports whether the publisher is configured and usable.
	Active() bool
	// Publish delivers one event. Implementations own their timeouts.
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards everything. Used when tracing is disabled.
type NopPublisher struct{}

func (NopPublisher) Active() bool                         { return false }
func (NopPublisher) Publish(context.Context, Event) error { return nil }
