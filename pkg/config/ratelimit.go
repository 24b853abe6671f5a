package config

import (
	"fmt"
	"strings"
)

// RateLimitConfig configures the per-client token bucket applied to mutating routes.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// String returns a string representation of the rate limit configuration.
func (c *RateLimitConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Rate Limit ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  rps: %v\n", c.RPS))
	b.WriteString(fmt.Sprintf("  burst: %d\n", c.Burst))
	return b.String()
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be greater than zero")
	}
	if c.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be greater than zero")
	}
	return nil
}
