package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for nlq-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Metrics query service (Cube-compatible REST API)
	Metrics MetricsServiceConfig `yaml:"metrics_service"`

	// Operational record service for detail/list intents
	Records RecordServiceConfig `yaml:"record_service"`

	// Language model used for query generation
	LLM LLMConfig `yaml:"llm"`

	// Embedding model used for schema retrieval
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval and confidence gate tuning
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Gate      GateConfig      `yaml:"gate"`

	// Validator policy
	Validator ValidatorConfig `yaml:"validator"`

	// SemanticConfigDir holds glossary.yml and examples.yml.
	SemanticConfigDir string `yaml:"semantic_config_dir" env:"SEMANTIC_CONFIG_DIR" env-default:"config"`
}

// MetricsServiceConfig holds the metrics query service endpoint.
type MetricsServiceConfig struct {
	BaseURL        string `yaml:"base_url" env:"METRICS_BASE_URL" env-default:"http://localhost:4000/cubejs-api/v1"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"METRICS_TIMEOUT_SECONDS" env-default:"30"`
}

// RecordServiceConfig holds the operational record service endpoint.
type RecordServiceConfig struct {
	BaseURL        string `yaml:"base_url" env:"RECORDS_BASE_URL" env-default:"http://localhost:3001"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"RECORDS_TIMEOUT_SECONDS" env-default:"30"`
}

// LLMConfig holds the query generator model configuration.
// Provider selects the client implementation: "openai" for any
// OpenAI-compatible endpoint, "anthropic" for the Anthropic API.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
}

// EmbeddingConfig holds the embedding model configuration.
type EmbeddingConfig struct {
	Endpoint string `yaml:"endpoint" env:"EMBEDDING_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	APIKey   string `yaml:"-" env:"EMBEDDING_API_KEY"` // Secret - not in YAML
}

// RetrievalConfig tunes the schema retriever.
type RetrievalConfig struct {
	// TopK is how many candidate fields are retrieved per question.
	TopK int `yaml:"top_k" env:"RETRIEVAL_TOP_K" env-default:"20"`
	// EssentialGroups and EssentialFields drive deterministic
	// enrichment: when a top candidate belongs to one of the groups,
	// the listed fields are injected into the candidate set.
	EssentialGroups []string `yaml:"essential_groups"`
	EssentialFields []string `yaml:"essential_fields"`
}

// GateConfig holds the confidence gate thresholds.
//
// The score cutoffs are L2 distances calibrated against the configured
// embedding model. Swapping the embedding model shifts the whole
// distance distribution, so these values must be recalibrated together
// with EmbeddingConfig.Model; do not reuse them across models.
type GateConfig struct {
	// WeakScore: above this the question does not match any known
	// metric at all.
	WeakScore float64 `yaml:"weak_score" env:"GATE_WEAK_SCORE" env-default:"18.0"`
	// MediumScore: above this, a candidate set without any measure
	// cannot yield a valid query.
	MediumScore float64 `yaml:"medium_score" env:"GATE_MEDIUM_SCORE" env-default:"14.0"`
	// AmbiguityScore: above this, a candidate set spread over many
	// groups with no glossary anchor is treated as ambiguous.
	AmbiguityScore float64 `yaml:"ambiguity_score" env:"GATE_AMBIGUITY_SCORE" env-default:"12.0"`
	// GroupCutoff is the distinct-group count that triggers the
	// ambiguity branch.
	GroupCutoff int `yaml:"group_cutoff" env:"GATE_GROUP_CUTOFF" env-default:"4"`
	// TopN is how many leading candidates feed the composition
	// signals (has_measure, distinct_groups).
	TopN int `yaml:"top_n" env:"GATE_TOP_N" env-default:"5"`
}

// ValidatorConfig holds the query validator policy.
type ValidatorConfig struct {
	MaxLimit     int `yaml:"max_limit" env:"VALIDATOR_MAX_LIMIT" env-default:"10000"`
	DefaultLimit int `yaml:"default_limit" env:"VALIDATOR_DEFAULT_LIMIT" env-default:"100"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on
// the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q (want openai or anthropic)", c.LLM.Provider)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Gate.TopN <= 0 {
		return fmt.Errorf("gate top_n must be positive, got %d", c.Gate.TopN)
	}
	if c.Gate.WeakScore < c.Gate.MediumScore || c.Gate.MediumScore < c.Gate.AmbiguityScore {
		return fmt.Errorf("gate thresholds must satisfy weak >= medium >= ambiguity, got %.1f/%.1f/%.1f",
			c.Gate.WeakScore, c.Gate.MediumScore, c.Gate.AmbiguityScore)
	}
	if c.Validator.MaxLimit <= 0 || c.Validator.DefaultLimit <= 0 {
		return fmt.Errorf("validator limits must be positive")
	}
	if c.Validator.DefaultLimit > c.Validator.MaxLimit {
		return fmt.Errorf("validator default_limit %d exceeds max_limit %d",
			c.Validator.DefaultLimit, c.Validator.MaxLimit)
	}

	return nil
}
