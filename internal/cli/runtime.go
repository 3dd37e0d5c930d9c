package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognos-ai/cognos/internal/agent"
	"github.com/cognos-ai/cognos/internal/config"
	"github.com/cognos-ai/cognos/internal/memory"
	"github.com/cognos-ai/cognos/internal/planner"
	"github.com/cognos-ai/cognos/internal/provider"
	"github.com/cognos-ai/cognos/internal/tools"
	"github.com/cognos-ai/cognos/internal/trace"
)

// appRuntime bundles the wired components shared by the run and gateway
// commands.
type appRuntime struct {
	cfg      *config.Config
	store    *memory.Store
	registry *tools.Registry
	loop     *agent.Loop
	tracer   *trace.Dispatcher
	kafkaPub *trace.KafkaPublisher
}

// buildRuntime loads config and wires store, tools, planner, tracer and
// loop together. The caller owns shutdown via rt.close().
func buildRuntime() (*appRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := memory.NewStore(filepath.Join(cfg.Paths.DataDir, "cognos.db"))
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewEchoTool(),
		tools.NewNowTool(),
		tools.NewMemoryQueryTool(store),
		tools.NewMemoryRecentTool(store),
		tools.NewMemoryWriteNoteTool(store),
	} {
		if err := registry.Register(tool); err != nil {
			store.Close()
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}

	var plan agent.Planner
	if cfg.Model.APIKey != "" {
		llm := provider.NewOpenAIProvider(cfg.Model.APIKey, cfg.Model.APIBase, cfg.Model.Name)
		plan = planner.NewLLMPlanner(llm, registry, cfg.Model.Name)
	} else {
		plan = planner.NewFallbackPlanner()
	}

	rt := &appRuntime{cfg: cfg, store: store, registry: registry}

	var publisher trace.Publisher = trace.NopPublisher{}
	if cfg.Trace.Enabled && cfg.Trace.KafkaBrokers != "" {
		kafkaPub, err := trace.NewKafkaPublisher(cfg.Trace.KafkaBrokers, cfg.Trace.Topic)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("init trace publisher: %w", err)
		}
		rt.kafkaPub = kafkaPub
		publisher = kafkaPub
	}
	rt.tracer = trace.NewDispatcher(publisher, 0)

	rt.loop = agent.NewLoop(agent.LoopOptions{
		Planner:  plan,
		Executor: tools.NewExecutor(registry),
		Policy:   cfg.Policy(),
		Tracer:   rt.tracer,
	})
	return rt, nil
}

func (rt *appRuntime) close() {
	if rt.kafkaPub != nil {
		rt.kafkaPub.Close()
	}
	if rt.store != nil {
		rt.store.Close()
	}
}
