package dispatch

import (
	"fmt"
	"time"
)

// Config defines the dispatch engine parameters loaded from configuration.
type Config struct {
	// ResponseTimeoutSeconds is the watchdog window a candidate has to
	// accept or decline before the engine moves on.
	ResponseTimeoutSeconds int `json:"response_timeout_seconds"`
	// SendTimeoutSeconds bounds a single push delivery attempt.
	SendTimeoutSeconds int `json:"send_timeout_seconds"`
	// MaxPasses is the maximum number of full walks over the candidate
	// list before the request resolves as exhausted. 1 means no retry
	// pass.
	MaxPasses int `json:"max_passes"`
	// RankCandidates orders candidates by historical responsiveness
	// before the first invitation.
	RankCandidates bool `json:"rank_candidates"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ResponseTimeoutSeconds == 0 {
		c.ResponseTimeoutSeconds = 30
	}
	if c.SendTimeoutSeconds == 0 {
		c.SendTimeoutSeconds = 5
	}
	if c.MaxPasses == 0 {
		c.MaxPasses = 2
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.ResponseTimeoutSeconds <= 0 {
		return fmt.Errorf("response_timeout_seconds must be positive")
	}
	if c.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("send_timeout_seconds must be positive")
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("max_passes must be positive")
	}
	return nil
}

// ResponseTimeout returns the watchdog window as a duration.
func (c Config) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSeconds) * time.Second
}

// SendTimeout returns the per-delivery timeout as a duration.
func (c Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}
