package config

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Model: ModelConfig{
			Provider:  "openai",
			Name:      "gpt-4o-mini",
			MaxTokens: 1024,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseDelayMs: 1000,
			MaxDelayMs:  30000,
		},
		Assistant: AssistantConfig{
			MaxIterations:          5,
			RecentWindow:           20,
			ConversationTTLMinutes: 30,
		},
		Database: DatabaseConfig{
			Path: "data/tidybook.db",
		},
	}
}
