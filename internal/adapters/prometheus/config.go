package prometheus

import "github.com/kelseyhightower/envconfig"

// Config holds Prometheus client configuration.
type Config struct {
	URL     string `envconfig:"URL"`
	Enabled bool   `envconfig:"ENABLED" default:"false"`
}

// LoadConfig loads Prometheus configuration from ABCTA_PROMETHEUS_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("ABCTA_PROMETHEUS", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
