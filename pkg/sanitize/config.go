// Package sanitize is the engine's boundary to its external collaborators: the
// sanitization service itself, the logo asset store, and the secondary-batch
// download endpoint. It owns the wire shapes of the submission payload and of
// the low-confidence report the service sends back.
package sanitize

import (
	"io"
	"net/http"
)

// Config holds the connection settings for the sanitization service.
type Config struct {
	BaseURL    string  // service root, e.g. "https://sanitize.example.com"
	ClientName string  // template owner, sent with every submission
	DeviceID   string  // operator device identity, scopes template versions
	Threshold  float64 // confidence threshold forwarded to the service

	HTTPClient *http.Client // nil = http.DefaultClient
	Logger     io.Writer    // warning sink (nil = stdout)
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.9,
	}
}
