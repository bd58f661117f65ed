package config

import (
	"fmt"
	"os"
	"strconv"
)

// AppConfig is the process configuration, read once at startup and
// passed down explicitly. Nothing below the composition root reads the
// environment.
type AppConfig struct {
	Port               string
	OpenAIAPIKey       string
	GeneratorsDir      string
	DefaultModel       string
	DefaultGeneratorID string
	Debug              bool
}

// Load reads the configuration from the environment. OPENAI_API_KEY is
// required; everything else has a default.
func Load() (*AppConfig, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	debug := false
	if raw := os.Getenv("DEBUG"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG value %q: %w", raw, err)
		}
		debug = parsed
	}

	return &AppConfig{
		Port:               envOrDefault("PORT", "8080"),
		OpenAIAPIKey:       apiKey,
		GeneratorsDir:      envOrDefault("GENERATORS_DIR", "generators"),
		DefaultModel:       envOrDefault("DEFAULT_MODEL", "gpt-4o"),
		DefaultGeneratorID: envOrDefault("DEFAULT_GENERATOR_ID", "BGS_Default"),
		Debug:              debug,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
