package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from path, layered on the defaults and
// finished with environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.Model.APIKey = os.ExpandEnv(cfg.Model.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from TIDYBOOK_* variables.
func applyEnv(cfg *Config) {
	envStr("TIDYBOOK_BIND", &cfg.Server.Bind)
	envInt("TIDYBOOK_PORT", &cfg.Server.Port)
	envStr("TIDYBOOK_LOG_LEVEL", &cfg.Logging.Level)
	envStr("TIDYBOOK_MODEL_PROVIDER", &cfg.Model.Provider)
	envStr("TIDYBOOK_MODEL_API_KEY", &cfg.Model.APIKey)
	envStr("TIDYBOOK_MODEL_BASE_URL", &cfg.Model.BaseURL)
	envStr("TIDYBOOK_MODEL_NAME", &cfg.Model.Name)
	envInt("TIDYBOOK_MODEL_MAX_TOKENS", &cfg.Model.MaxTokens)
	envStr("TIDYBOOK_DB_PATH", &cfg.Database.Path)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
