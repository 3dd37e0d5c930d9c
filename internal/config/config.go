// Package config provides configuration types and loading for cognos.
package config

import "github.com/cognos-ai/cognos/internal/agent"

// Config is the root configuration struct.
type Config struct {
	Paths   PathsConfig   `json:"paths"`
	Model   ModelConfig   `json:"model"`
	Agent   AgentConfig   `json:"agent"`
	Gateway GatewayConfig `json:"gateway"`
	Trace   TraceConfig   `json:"trace"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ModelConfig groups LLM planner settings. An empty APIKey selects the
// deterministic fallback planner.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"NAME"`
	APIKey      string  `json:"apiKey" envconfig:"API_KEY"`
	APIBase     string  `json:"apiBase,omitempty" envconfig:"API_BASE"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// AgentConfig groups iteration and retry policy settings.
type AgentConfig struct {
	MaxIterationsDefault    int     `json:"maxIterationsDefault" envconfig:"MAX_ITERATIONS_DEFAULT"`
	MaxIterationsCap        int     `json:"maxIterationsCap" envconfig:"MAX_ITERATIONS_CAP"`
	MinConfidenceToFinalize float64 `json:"minConfidenceToFinalize" envconfig:"MIN_CONFIDENCE_TO_FINALIZE"`
	MaxTotalRetries         int     `json:"maxTotalRetries" envconfig:"MAX_TOTAL_RETRIES"`
	MaxRetriesPerTool       int     `json:"maxRetriesPerTool" envconfig:"MAX_RETRIES_PER_TOOL"`
}

// GatewayConfig contains HTTP server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// TraceConfig configures the optional Kafka run-telemetry publisher.
type TraceConfig struct {
	Enabled      bool   `json:"enabled" envconfig:"ENABLED"`
	KafkaBrokers string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic        string `json:"topic" envconfig:"TOPIC"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	policy := agent.DefaultPolicy()
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.cognos",
		},
		Model: ModelConfig{
			Name:        "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		Agent: AgentConfig{
			MaxIterationsDefault:    policy.MaxIterationsDefault,
			MaxIterationsCap:        policy.MaxIterationsCap,
			MinConfidenceToFinalize: policy.MinConfidenceToFinalize,
			MaxTotalRetries:         policy.Retry.MaxTotalRetries,
			MaxRetriesPerTool:       policy.Retry.MaxRetriesPerTool,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1", // Secure default
			Port: 18890,
		},
		Trace: TraceConfig{
			Enabled: false,
			Topic:   "cognos.agent.traces",
		},
	}
}

// Policy materializes the agent policy from configuration, falling back
// to defaults for unset values.
func (c *Config) Policy() agent.Policy {
	policy := agent.DefaultPolicy()
	if c.Agent.MaxIterationsDefault > 0 {
		policy.MaxIterationsDefault = c.Agent.MaxIterationsDefault
	}
	if c.Agent.MaxIterationsCap > 0 {
		policy.MaxIterationsCap = c.Agent.MaxIterationsCap
	}
	if c.Agent.MinConfidenceToFinalize > 0 {
		policy.MinConfidenceToFinalize = c.Agent.MinConfidenceToFinalize
	}
	if c.Agent.MaxTotalRetries > 0 {
		policy.Retry.MaxTotalRetries = c.Agent.MaxTotalRetries
	}
	if c.Agent.MaxRetriesPerTool > 0 {
		policy.Retry.MaxRetriesPerTool = c.Agent.MaxRetriesPerTool
	}
	return policy
}
