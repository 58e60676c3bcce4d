package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

const envPrefix = "ABCTA"

// Database holds libsql/Turso connection settings.
type Database struct {
	URL       string `envconfig:"DATABASE_URL" default:"file:abcta.db"`
	AuthToken string `envconfig:"AUTH_TOKEN"`
}

// Collector holds configuration for the analytics collector service.
type Collector struct {
	Database         Database
	Port             int    `envconfig:"PORT" default:"8080"`
	SiteDir          string `envconfig:"SITE_DIR"`
	ExperimentConfig string `envconfig:"EXPERIMENT_CONFIG"`
	Endpoint         string `envconfig:"ENDPOINT" default:"/api/analytics/track"`
	RetentionDays    int    `envconfig:"RETENTION_DAYS" default:"0"`
}

// Visitor holds configuration for headless visits.
type Visitor struct {
	ExperimentConfig string `envconfig:"EXPERIMENT_CONFIG"`
	Endpoint         string `envconfig:"ENDPOINT"`
	GitHubToken      string `envconfig:"GITHUB_TOKEN"`
	Profile          string `envconfig:"PROFILE" default:"default"`
}

// LoadDatabase loads database settings from ABCTA_* environment variables.
func LoadDatabase() (*Database, error) {
	var cfg Database
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadCollector loads collector configuration from environment variables.
func LoadCollector() (*Collector, error) {
	var cfg Collector
	if err := envconfig.Process(envPrefix, &cfg.Database); err != nil {
		return nil, err
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadVisitor loads headless visitor configuration from environment variables.
func LoadVisitor() (*Visitor, error) {
	var cfg Visitor
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Experiment resolves the experiment definition: the YAML file at path when
// set, the built-in default otherwise.
func Experiment(path string) (domain.ExperimentConfig, error) {
	if path == "" {
		return domain.DefaultConfig(), nil
	}
	cfg, err := domain.LoadConfig(path)
	if err != nil {
		return domain.ExperimentConfig{}, fmt.Errorf("loading experiment config: %w", err)
	}
	return cfg, nil
}
