package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildRuntime(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	cfgJSON := fmt.Sprintf(`{"paths":{"dataDir":%q}}`, filepath.Join(dir, "data"))
	if err := os.WriteFile(cfgPath, []byte(cfgJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COGNOS_CONFIG", cfgPath)

	rt, err := buildRuntime()
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	defer rt.close()

	if rt.loop == nil || rt.tracer == nil {
		t.Fatal("loop and tracer must be wired")
	}
	if rt.tracer.Active() {
		t.Error("tracer should be inactive with tracing disabled")
	}
	names := rt.registry.Names()
	want := []string{"echo", "memory_query", "memory_recent", "memory_write_note", "now"}
	if len(names) != len(want) {
		t.Fatalf("registered tools = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("tool[%d] = %q, want %q", i, names[i], name)
		}
	}
}
