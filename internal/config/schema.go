package config

// Config holds shusrusha configuration.
// Stored at: ./config.yaml or ~/.shusrusha/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Pharmacy     PharmacyCfg               `mapstructure:"pharmacy" yaml:"pharmacy"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`             // "openai"
	Model     string `mapstructure:"model" yaml:"model"`           // Default model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// PharmacyCfg configures the external pharmacy catalog client.
type PharmacyCfg struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxContentKB   int    `mapstructure:"max_content_kb" yaml:"max_content_kb"` // Catalog HTML truncation budget
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// DefaultsCfg specifies default model and concurrency selections.
type DefaultsCfg struct {
	LLMProvider           string `mapstructure:"llm_provider" yaml:"llm_provider"`                       // Default LLM provider name
	OCRModel              string `mapstructure:"ocr_model" yaml:"ocr_model"`                             // Vision model for transcription
	ExtractionModel       string `mapstructure:"extraction_model" yaml:"extraction_model"`               // Diagnosis/medication extraction
	PharmacyModel         string `mapstructure:"pharmacy_model" yaml:"pharmacy_model"`                   // Catalog parsing and matching
	MaxWorkers            int    `mapstructure:"max_workers" yaml:"max_workers"`                         // Concurrent reconciliation workers
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"` // Per-LLM-call timeout
}

// ServerCfg configures the local HTTP API.
type ServerCfg struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      string `mapstructure:"port" yaml:"port"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"` // Bearer token (supports ${ENV_VAR} syntax)
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 150,
				Enabled:   true,
			},
		},
		Pharmacy: PharmacyCfg{
			BaseURL:        "https://pharmeasy.in",
			TimeoutSeconds: 30,
			MaxContentKB:   40,
			MaxRetries:     3,
		},
		Defaults: DefaultsCfg{
			LLMProvider:           "openai",
			OCRModel:              "gpt-4o",
			ExtractionModel:       "gpt-4o-mini",
			PharmacyModel:         "gpt-4o",
			MaxWorkers:            6,
			RequestTimeoutSeconds: 120,
		},
		Server: ServerCfg{
			Host:      "127.0.0.1",
			Port:      "5000",
			AuthToken: "${SHUSRUSHA_API_SECRET}",
			RateLimit: 100,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
