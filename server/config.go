package server

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the proxy process configuration, read from the environment.
type Config struct {
	Port           string
	APIKey         string
	Model          string
	UpstreamURL    string
	DBPath         string
	AllowedOrigins []string
	SeedFile       string
}

// LoadConfig reads configuration from environment variables. The API key may
// be empty: the server still starts and the chat endpoints answer with a
// substitute greeting explaining the missing setup.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("CHATGLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ZHIPU_API_KEY")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		APIKey:         strings.TrimSpace(apiKey),
		Model:          getEnv("CHATGLM_MODEL", ""),
		UpstreamURL:    getEnv("CHATGLM_API_BASE", ""),
		DBPath:         getEnv("DB_PATH", "./data/roundtable.db"),
		AllowedOrigins: splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		SeedFile:       getEnv("AGENT_SEEDS", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitOrigins(value string) []string {
	var origins []string
	for _, o := range strings.Split(value, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
