package config

import (
	"fmt"
	"net"
)

// HTTPConfig configures the REST and WebSocket server.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	// Token protects the command routes with a bearer token when set.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Validate checks the listen address.
func (c HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("http: invalid addr %q: %w", c.Addr, err)
	}
	return nil
}
