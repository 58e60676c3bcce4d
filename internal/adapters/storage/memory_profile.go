package storage

import (
	"net/http"
	"sync"
	"time"
)

// MemoryProfile is an in-process browser profile.
type MemoryProfile struct {
	mu      sync.Mutex
	values  map[string]string
	cookies map[string]*http.Cookie
	now     func() time.Time
}

func NewMemoryProfile() *MemoryProfile {
	return &MemoryProfile{
		values:  map[string]string{},
		cookies: map[string]*http.Cookie{},
		now:     time.Now,
	}
}

func (m *MemoryProfile) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryProfile) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryProfile) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryProfile) SetCookie(cookie *http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cookie
	m.cookies[c.Name] = &c
	return nil
}

func (m *MemoryProfile) Cookie(name string) (*http.Cookie, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cookies[name]
	if !ok || expired(c, m.now()) {
		return nil, false
	}
	cp := *c
	return &cp, true
}
