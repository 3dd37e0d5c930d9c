package tools

import (
	"fmt"
	"strings"
	"time"
)

const echoMaxTextLen = 10000

// EchoTool returns the provided text back to the caller.
type EchoTool struct{}

func NewEchoTool() *EchoTool { return &EchoTool{} }

func (t *EchoTool) Name() string        { return "echo" }
func (t *EchoTool) Description() string { return "Returns back the provided text." }

func (t *EchoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Text to echo back",
				"minLength":   1,
				"maxLength":   echoMaxTextLen,
			},
		},
		"required": []string{"text"},
	}
}

func (t *EchoTool) Validate(args map[string]any) error {
	text, ok := args["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	if len(text) > echoMaxTextLen {
		return fmt.Errorf("text exceeds %d characters", echoMaxTextLen)
	}
	return nil
}

func (t *EchoTool) Run(ctx Context, args map[string]any) Output {
	return Output{OK: true, Data: map[string]any{
		"text":    args["text"],
		"user_id": ctx.UserID,
	}}
}

// NowTool returns the current UTC time.
type NowTool struct {
	// clock is swappable for tests; defaults to time.Now.
	clock func() time.Time
}

func NewNowTool() *NowTool { return &NowTool{clock: time.Now} }

func (t *NowTool) Name() string        { return "now" }
func (t *NowTool) Description() string { return "Returns current UTC time." }

func (t *NowTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tz": map[string]any{
				"type":        "string",
				"description": "Timezone label echoed back (time is always UTC)",
			},
		},
	}
}

func (t *NowTool) Validate(args map[string]any) error {
	if v, ok := args["tz"]; ok {
		if _, isStr := v.(string); !isStr {
			return fmt.Errorf("tz must be a string")
		}
	}
	return nil
}

func (t *NowTool) Run(ctx Context, args map[string]any) Output {
	tz := GetString(args, "tz", "UTC")
	return Output{OK: true, Data: map[string]any{
		"utc_now": t.clock().UTC().Format(time.RFC3339),
		"tz":      tz,
	}}
}
