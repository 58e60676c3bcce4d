package ports

import "net/http"

// KeyValueStore is the visitor-local persistent store (browser local storage).
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// CookieJar receives cookies set for the current origin.
type CookieJar interface {
	SetCookie(cookie *http.Cookie) error
	Cookie(name string) (*http.Cookie, bool)
}

// Profile is a browser profile: local storage plus its cookie jar.
type Profile interface {
	KeyValueStore
	CookieJar
}
