package storage

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStore_LocalStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "visitor.json")
	s, err := NewProfileStoreAt(path)
	require.NoError(t, err)

	_, ok, err := s.Get("ab-test")
	require.NoError(t, err)
	assert.False(t, ok, "fresh profile should be empty")

	require.NoError(t, s.Set("ab-test", "treatment"))

	// A second store on the same file sees the value, as a reload would.
	reopened, err := NewProfileStoreAt(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get("ab-test")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "treatment", v)

	require.NoError(t, reopened.Remove("ab-test"))
	_, ok, err = s.Get("ab-test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfileStore_Cookie(t *testing.T) {
	s, err := NewProfileStoreAt(filepath.Join(t.TempDir(), "p.json"))
	require.NoError(t, err)

	now := time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	err = s.SetCookie(&http.Cookie{
		Name:     "ab-test",
		Value:    "control",
		Path:     "/",
		Expires:  now.Add(30 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})
	require.NoError(t, err)

	c, ok := s.Cookie("ab-test")
	require.True(t, ok)
	assert.Equal(t, "control", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	s.now = func() time.Time { return now.Add(31 * 24 * time.Hour) }
	_, ok = s.Cookie("ab-test")
	assert.False(t, ok, "cookie should expire after 30 days")
}

func TestProfileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s, err := NewProfileStoreAt(path)
	require.NoError(t, err)

	_, _, err = s.Get("ab-test")
	assert.Error(t, err)
}

func TestMemoryProfile(t *testing.T) {
	m := NewMemoryProfile()

	require.NoError(t, m.Set("k", "v"))
	v, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, m.SetCookie(&http.Cookie{Name: "k", Value: "v", MaxAge: -1}))
	_, ok = m.Cookie("k")
	assert.False(t, ok, "negative MaxAge deletes the cookie")
}
