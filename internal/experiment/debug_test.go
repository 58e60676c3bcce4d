package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/abcta/internal/adapters/storage"
)

func TestDebug_ForceControl(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profile.Set(h.cfg.StorageKey, "treatment"))
	c := h.start(t)

	require.NoError(t, c.Debug().ForceControl())

	stored, _, err := h.profile.Get(h.cfg.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "control", stored)
	cookie, ok := h.profile.Cookie(h.cfg.StorageKey)
	require.True(t, ok)
	assert.Equal(t, "control", cookie.Value)
	assert.Equal(t, 1, h.window.reloads)
}

func TestDebug_ForceTreatment(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profile.Set(h.cfg.StorageKey, "control"))
	c := h.start(t)

	require.NoError(t, c.Debug().ForceTreatment())

	stored, _, _ := h.profile.Get(h.cfg.StorageKey)
	assert.Equal(t, "treatment", stored)
	assert.Equal(t, 1, h.window.reloads)
}

func TestDebug_ForceInvalidVariant(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profile.Set(h.cfg.StorageKey, "treatment"))
	c := h.start(t)

	err := c.Debug().ForceVariant("banana")

	assert.ErrorIs(t, err, ErrInvalidVariant)
	stored, _, _ := h.profile.Get(h.cfg.StorageKey)
	assert.Equal(t, "treatment", stored)
	assert.Zero(t, h.window.reloads)
	assert.Contains(t, h.logs.String(), "invalid variant")
}

func TestDebug_VariantAndReset(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profile.Set(h.cfg.StorageKey, "treatment"))
	c := h.start(t)
	d := c.Debug()

	assert.Equal(t, "treatment", d.Variant())

	require.NoError(t, d.Reset())

	_, ok, err := h.profile.Get(h.cfg.StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, h.window.reloads)
}

func TestNewDebugUtils_WithoutController(t *testing.T) {
	h := newHarness(t)
	profile := storage.NewMemoryProfile()
	reloads := 0
	d := NewDebugUtils(h.cfg, profile, func() { reloads++ }, nil)

	assert.Equal(t, "", d.Variant())

	require.NoError(t, d.ForceTreatment())
	assert.Equal(t, "treatment", d.Variant())
	assert.Equal(t, 1, reloads)
}

func TestDebugInfoLoggedWithQueryFlag(t *testing.T) {
	h := newHarness(t)
	h.window.url = "https://example.org/?debug=true"
	h.start(t)

	logs := h.logs.String()
	assert.Contains(t, logs, "experiment info")
	assert.Contains(t, logs, "experiment.treatment_percentage=50")
}

func TestDebugInfoSilentWithoutQueryFlag(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	assert.NotContains(t, h.logs.String(), "experiment info")
}

func TestNew_RequiresHostCollaborators(t *testing.T) {
	h := newHarness(t)

	deps := h.deps
	deps.Transport = nil
	_, err := New(h.cfg, deps)
	assert.Error(t, err)

	deps = h.deps
	deps.Profile = nil
	_, err = New(h.cfg, deps)
	assert.Error(t, err)
}
