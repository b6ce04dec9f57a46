package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidCookie is returned when a cookie name or value cannot be written.
var ErrInvalidCookie = errors.New("invalid cookie")

// Options holds per-cookie attributes
type Options struct {
	// MaxAge in seconds. Zero means a browser-session cookie.
	MaxAge int
	Path   string
}

// Config holds jar-wide cookie attributes
type Config struct {
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// DefaultConfig returns the default jar configuration
func DefaultConfig() *Config {
	return &Config{
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Jar reads cookies from requests and writes them to responses
type Jar interface {
	Get(r *http.Request, name string) (string, bool)
	Set(w http.ResponseWriter, name, value string, opts Options) error
}

// HTTPJar implements Jar on top of net/http cookies
type HTTPJar struct {
	config *Config
}

// NewHTTPJar creates a new cookie jar
func NewHTTPJar(config *Config) *HTTPJar {
	if config == nil {
		config = DefaultConfig()
	}
	return &HTTPJar{config: config}
}

// Get returns the value of the named cookie and whether it was present and non-empty
func (j *HTTPJar) Get(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set writes a Set-Cookie header on the response
func (j *HTTPJar) Set(w http.ResponseWriter, name, value string, opts Options) error {
	path := opts.Path
	if path == "" {
		path = "/"
	}

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   j.config.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   j.config.Secure,
		HttpOnly: j.config.HTTPOnly,
		SameSite: j.config.SameSite,
	}
	if err := c.Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	http.SetCookie(w, c)
	return nil
}

// ParseSameSite converts a config string to an http.SameSite value
func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
