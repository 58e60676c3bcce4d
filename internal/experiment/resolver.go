package experiment

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

// resolve returns the persisted variant, assigning and persisting a new
// one when none is stored or the stored label is not one of ours.
func (c *Controller) resolve() domain.Variant {
	stored, ok, err := c.profile.Get(c.cfg.StorageKey)
	if err != nil {
		c.logger.Warn("failed to read stored variant", "error", err)
	}
	if ok {
		if v, valid := c.cfg.ParseVariant(stored); valid {
			return v
		}
	}

	v := assign(c.cfg.TreatmentPercentage, c.rand)
	if err := persistVariant(c.cfg, c.profile, c.cfg.Label(v), c.clock.Now()); err != nil {
		c.logger.Warn("failed to persist variant", "error", err)
	}
	return v
}

// assign draws uniformly from [0, 100) and compares against the
// treatment percentage.
func assign(treatmentPercentage float64, r *rand.Rand) domain.Variant {
	var draw float64
	if r != nil {
		draw = r.Float64() * 100
	} else {
		draw = rand.Float64() * 100
	}
	if draw < treatmentPercentage {
		return domain.Treatment
	}
	return domain.Control
}

// persistVariant stores label under the storage key and mirrors it into
// a same-site cookie for same-origin server-side reads.
func persistVariant(cfg domain.ExperimentConfig, profile ports.Profile, label string, now time.Time) error {
	if err := profile.Set(cfg.StorageKey, label); err != nil {
		return fmt.Errorf("failed to store variant: %w", err)
	}
	if err := profile.SetCookie(variantCookie(cfg, label, now)); err != nil {
		return fmt.Errorf("failed to set variant cookie: %w", err)
	}
	return nil
}

func variantCookie(cfg domain.ExperimentConfig, label string, now time.Time) *http.Cookie {
	maxAge := cfg.CookieMaxAge
	if maxAge <= 0 {
		maxAge = domain.DefaultCookieMaxAge
	}
	return &http.Cookie{
		Name:     cfg.StorageKey,
		Value:    label,
		Path:     "/",
		Expires:  now.Add(maxAge).UTC(),
		MaxAge:   int(maxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}
