package domain

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when an experiment definition cannot be decoded.
var ErrInvalidConfig = errors.New("invalid experiment config")

const (
	DefaultEndpoint     = "/api/analytics/track"
	DefaultCookieMaxAge = 30 * 24 * time.Hour
)

// VariantLabels maps the two arms of an experiment to the labels that are
// persisted and reported.
type VariantLabels struct {
	Control   string `yaml:"control"`
	Treatment string `yaml:"treatment"`
}

// TrackingAttributes names the data-tracking values the instrumentor listens for.
type TrackingAttributes struct {
	Button   string `yaml:"button"`
	Location string `yaml:"location"`
}

// ExperimentConfig is the static definition of a single two-arm experiment.
// It is immutable once a controller has been built from it.
type ExperimentConfig struct {
	TestID   string        `yaml:"test_id"`
	TestName string        `yaml:"test_name"`
	Variants VariantLabels `yaml:"variants"`

	// TreatmentPercentage is the share of new visitors assigned to treatment.
	// Values outside [0, 100] are not rejected: below 0 always yields
	// control, above 100 always yields treatment.
	TreatmentPercentage float64 `yaml:"treatment_percentage"`

	StorageKey         string             `yaml:"storage_key"`
	TrackingAttributes TrackingAttributes `yaml:"tracking_attributes"`
	GitHubRepo         string             `yaml:"github_repo"`
	Endpoint           string             `yaml:"endpoint"`
	CookieMaxAge       time.Duration      `yaml:"cookie_max_age"`
}

// DefaultConfig returns the navigation CTA button experiment.
func DefaultConfig() ExperimentConfig {
	return ExperimentConfig{
		TestID:   "ab-test-nav-cta-001",
		TestName: "navigation-cta-button",
		Variants: VariantLabels{
			Control:   "control",
			Treatment: "treatment",
		},
		TreatmentPercentage: 50,
		StorageKey:          "ab-test-navigation-cta-button",
		TrackingAttributes: TrackingAttributes{
			Button:   "contribute-cta-click",
			Location: "header-navigation",
		},
		GitHubRepo:   "crosschainriskframework/crosschainriskframework.github.io",
		Endpoint:     DefaultEndpoint,
		CookieMaxAge: DefaultCookieMaxAge,
	}
}

// LoadConfig reads a YAML experiment definition. Fields missing from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (ExperimentConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read experiment config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = DefaultCookieMaxAge
	}
	return cfg, nil
}

// Label returns the persisted label for v.
func (c ExperimentConfig) Label(v Variant) string {
	switch v {
	case Control:
		return c.Variants.Control
	case Treatment:
		return c.Variants.Treatment
	default:
		return ""
	}
}

// ParseVariant maps a persisted label back to a Variant. Only the two
// configured labels are accepted.
func (c ExperimentConfig) ParseVariant(label string) (Variant, bool) {
	switch {
	case label == "":
		return Unassigned, false
	case label == c.Variants.Control:
		return Control, true
	case label == c.Variants.Treatment:
		return Treatment, true
	default:
		return Unassigned, false
	}
}

// IsValidVariant reports whether label is one of the two configured labels.
func (c ExperimentConfig) IsValidVariant(label string) bool {
	_, ok := c.ParseVariant(label)
	return ok
}
