package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emiliopalmerini/abcta/internal/util"
)

// profileFile is the on-disk layout of a browser profile.
type profileFile struct {
	LocalStorage map[string]string `json:"local_storage"`
	// Cookies holds Set-Cookie header values keyed by cookie name.
	Cookies map[string]string `json:"cookies"`
}

// ProfileStore persists a simulated browser profile (local storage and
// cookies) as a JSON file.
type ProfileStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewProfileStore opens the named profile under the XDG data directory.
func NewProfileStore(name string) (*ProfileStore, error) {
	path, err := util.ProfilePath(name)
	if err != nil {
		return nil, err
	}
	return NewProfileStoreAt(path)
}

// NewProfileStoreAt opens a profile stored at path, creating parent directories.
func NewProfileStoreAt(path string) (*ProfileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &ProfileStore{path: path, now: time.Now}, nil
}

// Path returns the file backing the profile.
func (s *ProfileStore) Path() string {
	return s.path
}

func (s *ProfileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := p.LocalStorage[key]
	return v, ok, nil
}

func (s *ProfileStore) Set(key, value string) error {
	return s.update(func(p *profileFile) {
		p.LocalStorage[key] = value
	})
}

func (s *ProfileStore) Remove(key string) error {
	return s.update(func(p *profileFile) {
		delete(p.LocalStorage, key)
	})
}

func (s *ProfileStore) SetCookie(cookie *http.Cookie) error {
	if err := cookie.Valid(); err != nil {
		return fmt.Errorf("invalid cookie: %w", err)
	}
	return s.update(func(p *profileFile) {
		p.Cookies[cookie.Name] = cookie.String()
	})
}

// Cookie returns the named cookie unless it is missing or expired.
func (s *ProfileStore) Cookie(name string) (*http.Cookie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return nil, false
	}
	raw, ok := p.Cookies[name]
	if !ok {
		return nil, false
	}
	c, err := http.ParseSetCookie(raw)
	if err != nil || expired(c, s.now()) {
		return nil, false
	}
	return c, true
}

func (s *ProfileStore) update(fn func(*profileFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	fn(p)
	return s.save(p)
}

func (s *ProfileStore) load() (*profileFile, error) {
	p := &profileFile{
		LocalStorage: map[string]string{},
		Cookies:      map[string]string{},
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", s.path, err)
	}
	if p.LocalStorage == nil {
		p.LocalStorage = map[string]string{}
	}
	if p.Cookies == nil {
		p.Cookies = map[string]string{}
	}
	return p, nil
}

func (s *ProfileStore) save(p *profileFile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}

func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && !c.Expires.After(now)
}
