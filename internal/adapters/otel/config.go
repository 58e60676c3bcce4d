package otel

import "github.com/kelseyhightower/envconfig"

// Config holds OTEL exporter configuration.
type Config struct {
	Endpoint string `envconfig:"ENDPOINT"`
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Insecure bool   `envconfig:"INSECURE" default:"false"`
}

// LoadConfig loads OTEL configuration from ABCTA_OTEL_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("ABCTA_OTEL", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
