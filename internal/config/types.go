// Package config loads the server configuration from YAML with
// environment overrides.
package config

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Model     ModelConfig     `yaml:"model"`
	Retry     RetryConfig     `yaml:"retry"`
	Assistant AssistantConfig `yaml:"assistant"`
	Database  DatabaseConfig  `yaml:"database"`
}

// ServerConfig configures the HTTP ingress.
type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ModelConfig configures the text-generation provider.
type ModelConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Name      string `yaml:"name"`
	MaxTokens int    `yaml:"max_tokens"`
}

// RetryConfig tunes provider retry behavior.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// AssistantConfig tunes the conversation loop.
type AssistantConfig struct {
	MaxIterations          int `yaml:"max_iterations"`
	RecentWindow           int `yaml:"recent_window"`
	ConversationTTLMinutes int `yaml:"conversation_ttl_minutes"`
}

// DatabaseConfig configures persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}
