package gcp

import (
	"fmt"
	"time"

	"snapmaster-gcp/internal/common/errors"
)

// Pub/Sub accepts ack deadlines between 10 and 600 seconds
const (
	minAckDeadline = 10 * time.Second
	maxAckDeadline = 600 * time.Second
)

// Config holds Pub/Sub backend settings
type Config struct {
	// Timeout bounds every backend call, including client construction
	Timeout time.Duration
	// AckDeadline applies to subscriptions this backend creates
	AckDeadline time.Duration
}

// DefaultConfig returns the default backend settings
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		AckDeadline: 60 * time.Second,
	}
}

// Validate checks the settings and fills defaults for unset values
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	if c.AckDeadline == 0 {
		c.AckDeadline = DefaultConfig().AckDeadline
	}
	if c.AckDeadline < minAckDeadline || c.AckDeadline > maxAckDeadline {
		return errors.ConfigError(fmt.Sprintf("ack deadline must be between %s and %s", minAckDeadline, maxAckDeadline))
	}
	return nil
}
