package experiment

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

// ErrInvalidVariant is returned when forcing a label that is not one of
// the experiment's two variants.
var ErrInvalidVariant = errors.New("invalid variant")

// DebugUtils lets developers inspect and override the persisted assignment.
type DebugUtils struct {
	cfg     domain.ExperimentConfig
	profile ports.Profile
	reload  func()
	clock   ports.Clock
	logger  *slog.Logger
	current func() string
}

// NewDebugUtils returns debug utilities that work on a profile without a
// running controller. reload may be nil.
func NewDebugUtils(cfg domain.ExperimentConfig, profile ports.Profile, reload func(), logger *slog.Logger) *DebugUtils {
	d := &DebugUtils{
		cfg:     cfg,
		profile: profile,
		reload:  reload,
		clock:   SystemClock{},
		logger:  logger,
	}
	d.current = d.storedVariant
	return d
}

// ForceControl persists the control variant and reloads.
func (d *DebugUtils) ForceControl() error {
	return d.ForceVariant(d.cfg.Label(domain.Control))
}

// ForceTreatment persists the treatment variant and reloads.
func (d *DebugUtils) ForceTreatment() error {
	return d.ForceVariant(d.cfg.Label(domain.Treatment))
}

// ForceVariant persists label and reloads. An unknown label is logged and
// leaves the stored state untouched.
func (d *DebugUtils) ForceVariant(label string) error {
	if !d.cfg.IsValidVariant(label) {
		d.log().Error("invalid variant", "variant", label)
		return fmt.Errorf("%w: %q", ErrInvalidVariant, label)
	}
	if err := persistVariant(d.cfg, d.profile, label, d.clock.Now()); err != nil {
		return err
	}
	d.doReload()
	return nil
}

// Variant returns the current variant label.
func (d *DebugUtils) Variant() string {
	return d.current()
}

// Reset clears the persisted assignment and reloads, so the next load
// draws a fresh variant.
func (d *DebugUtils) Reset() error {
	if err := d.profile.Remove(d.cfg.StorageKey); err != nil {
		return fmt.Errorf("failed to clear stored variant: %w", err)
	}
	d.doReload()
	return nil
}

func (d *DebugUtils) storedVariant() string {
	label, ok, err := d.profile.Get(d.cfg.StorageKey)
	if err != nil || !ok || !d.cfg.IsValidVariant(label) {
		return ""
	}
	return label
}

func (d *DebugUtils) doReload() {
	if d.reload != nil {
		d.reload()
	}
}

func (d *DebugUtils) log() *slog.Logger {
	if d.logger == nil {
		return slog.Default()
	}
	return d.logger
}
