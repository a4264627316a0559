package led

// Controller switches the LEDs of the capture board.
type Controller interface {
	// Set turns ledType on or off. A non-empty pattern ("solid", "blink",
	// "heartbeat" or a raw kernel trigger) is applied first; an empty one
	// leaves the current pattern in place.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types this controller can drive.
	Available() []string

	// Patterns returns the named patterns Set understands.
	Patterns() []string
}
