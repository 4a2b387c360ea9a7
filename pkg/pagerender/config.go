package pagerender

import "io"

// Config holds renderer options.
type Config struct {
	ContainerWidth int       // available display width in pixels, 0 = unconstrained
	Scale          float64   // requested zoom, effective scale never exceeds native
	Logger         io.Writer // warning sink (nil = stdout)
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ContainerWidth: 0,
		Scale:          1.0,
		Logger:         nil, // stdout
	}
}
