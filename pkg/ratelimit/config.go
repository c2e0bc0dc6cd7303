package ratelimit

import "time"

// Class selects which default quota applies to a limiter. Live and test
// traffic are throttled independently so test integrations cannot starve
// production calls.
type Class string

const (
	ClassLive Class = "live"
	ClassTest Class = "test"
)

// Config carries the per-class defaults. Individual limiters may still be
// constructed with explicit values for special routes.
type Config struct {
	LiveRequests int           `env:"RATELIMIT_LIVE_REQUESTS" envDefault:"1000"` // LiveRequests is the live-mode quota per window.
	LiveWindow   time.Duration `env:"RATELIMIT_LIVE_WINDOW" envDefault:"60s"`    // LiveWindow is the live-mode trailing window length.
	TestRequests int           `env:"RATELIMIT_TEST_REQUESTS" envDefault:"100"`  // TestRequests is the test-mode quota per window.
	TestWindow   time.Duration `env:"RATELIMIT_TEST_WINDOW" envDefault:"60s"`    // TestWindow is the test-mode trailing window length.
}

// ForClass returns the (limit, window) pair for the given traffic class.
// Unknown classes get the conservative test-mode defaults.
func (c Config) ForClass(class Class) (int, time.Duration) {
	if class == ClassLive {
		return c.LiveRequests, c.LiveWindow
	}
	return c.TestRequests, c.TestWindow
}
