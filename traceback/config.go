package traceback

// Config controls traceback rendering. It is copied into every formatter.
type Config struct {
	// Width of rules and headers in the base trace.
	Width int
	// MaxFrames bounds the frames shown; middle frames are elided.
	MaxFrames int
	// LocalsMaxString bounds the length, in runes, of a rendered value.
	LocalsMaxString int
	// NoColor disables ANSI escapes.
	NoColor bool
	// MaskSensitive masks values bound to sensitive names such as "password".
	MaskSensitive bool
}

// DefaultConfig returns the default rendering configuration.
func DefaultConfig() Config {
	return Config{
		Width:           100,
		MaxFrames:       50,
		LocalsMaxString: 80,
	}
}

// normalized replaces non-positive sizes with their defaults.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.MaxFrames <= 0 {
		c.MaxFrames = d.MaxFrames
	}
	if c.LocalsMaxString <= 0 {
		c.LocalsMaxString = d.LocalsMaxString
	}
	return c
}
