// Package provider is the HTTP client for the rate-shopping provider. It
// verifies addresses, rates parcels, buys labels and manages the child
// accounts and carrier accounts merchants ship under.
package provider

import (
	"errors"
	"strings"
	"time"
)

// DefaultTimeout bounds every provider request unless configured otherwise
const DefaultTimeout = 20 * time.Second

var (
	ErrConfigMissingBaseURL = errors.New("provider: base URL is required")
	ErrConfigMissingAPIKey  = errors.New("provider: platform API key is required")
)

// Config holds provider client settings
type Config struct {
	// BaseURL is the API root, e.g. https://api.easypost.com/v2
	BaseURL string
	// APIKey is the platform key used for address verification and for
	// creating merchant child accounts
	APIKey string
	// Timeout bounds each HTTP request
	Timeout time.Duration
}

// Validate checks required settings
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	return nil
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
