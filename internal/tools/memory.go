package tools

import (
	"fmt"
	"strings"

	"github.com/cognos-ai/cognos/internal/memory"
)

const memoryQueryMaxLimit = 50

// MemoryQueryTool searches stored notes by substring.
type MemoryQueryTool struct {
	store *memory.Store
}

func NewMemoryQueryTool(store *memory.Store) *MemoryQueryTool {
	return &MemoryQueryTool{store: store}
}

func (t *MemoryQueryTool) Name() string { return "memory_query" }
func (t *MemoryQueryTool) Description() string {
	return "Searches stored notes for a text fragment."
}

func (t *MemoryQueryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Text fragment to search for", "minLength": 1},
			"limit": map[string]any{"type": "integer", "description": "Maximum results", "minimum": 1, "maximum": memoryQueryMaxLimit},
		},
		"required": []string{"query"},
	}
}

func (t *MemoryQueryTool) Validate(args map[string]any) error {
	q, ok := args["query"].(string)
	if !ok || strings.TrimSpace(q) == "" {
		return fmt.Errorf("query is required")
	}
	if limit := GetInt(args, "limit", 10); limit < 1 || limit > memoryQueryMaxLimit {
		return fmt.Errorf("limit must be in [1, %d]", memoryQueryMaxLimit)
	}
	return nil
}

func (t *MemoryQueryTool) Run(ctx Context, args map[string]any) Output {
	query := GetString(args, "query", "")
	limit := GetInt(args, "limit", 10)
	notes, err := t.store.QueryNotes(ctx.UserID, query, limit)
	if err != nil {
		return Fail("memory query failed: %v", err)
	}
	return Output{OK: true, Data: map[string]any{
		"notes": noteData(notes),
		"count": len(notes),
	}}
}

// MemoryRecentTool lists the newest stored notes.
type MemoryRecentTool struct {
	store *memory.Store
}

func NewMemoryRecentTool(store *memory.Store) *MemoryRecentTool {
	return &MemoryRecentTool{store: store}
}

func (t *MemoryRecentTool) Name() string { return "memory_recent" }
func (t *MemoryRecentTool) Description() string {
	return "Returns the most recently stored notes."
}

func (t *MemoryRecentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum results", "minimum": 1, "maximum": memoryQueryMaxLimit},
		},
	}
}

func (t *MemoryRecentTool) Validate(args map[string]any) error {
	if limit := GetInt(args, "limit", 10); limit < 1 || limit > memoryQueryMaxLimit {
		return fmt.Errorf("limit must be in [1, %d]", memoryQueryMaxLimit)
	}
	return nil
}

func (t *MemoryRecentTool) Run(ctx Context, args map[string]any) Output {
	limit := GetInt(args, "limit", 10)
	notes, err := t.store.RecentNotes(ctx.UserID, limit)
	if err != nil {
		return Fail("memory recent failed: %v", err)
	}
	return Output{OK: true, Data: map[string]any{
		"notes": noteData(notes),
		"count": len(notes),
	}}
}

// MemoryWriteNoteTool persists a note for later recall.
type MemoryWriteNoteTool struct {
	store *memory.Store
}

func NewMemoryWriteNoteTool(store *memory.Store) *MemoryWriteNoteTool {
	return &MemoryWriteNoteTool{store: store}
}

func (t *MemoryWriteNoteTool) Name() string { return "memory_write_note" }
func (t *MemoryWriteNoteTool) Description() string {
	return "Stores a note for later recall."
}

func (t *MemoryWriteNoteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "description": "Note text", "minLength": 1},
			"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Optional tags"},
		},
		"required": []string{"text"},
	}
}

func (t *MemoryWriteNoteTool) Validate(args map[string]any) error {
	text, ok := args["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	if v, ok := args["tags"]; ok {
		if _, isList := v.([]any); !isList {
			return fmt.Errorf("tags must be a list of strings")
		}
	}
	return nil
}

func (t *MemoryWriteNoteTool) Run(ctx Context, args map[string]any) Output {
	text := GetString(args, "text", "")
	var tags []string
	if raw, ok := args["tags"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
	}
	noteID, err := t.store.WriteNote(ctx.UserID, text, tags)
	if err != nil {
		return Fail("memory write failed: %v", err)
	}
	return Output{OK: true, Data: map[string]any{"note_id": noteID}}
}

func noteData(notes []memory.Note) []map[string]any {
	out := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		out = append(out, map[string]any{
			"note_id":    n.NoteID,
			"text":       n.Text,
			"tags":       n.Tags,
			"created_at": n.CreatedAt,
		})
	}
	return out
}
