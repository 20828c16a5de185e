package config

import (
	"fmt"
	"time"
)

type ResilienceConfig struct {
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type RetryConfig struct {
	MaxAttempts    uint          `koanf:"maxattempts"`
	InitialBackoff time.Duration `koanf:"initialbackoff"`
}

type CircuitBreakerConfig struct {
	Name                string        `koanf:"name"`
	MaxRequests         uint32        `koanf:"maxrequests"`
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

func (c *ResilienceConfig) String() string {
	return NewSection("Retry").
		Add("maxattempts", c.Retry.MaxAttempts).
		Add("initialbackoff", c.Retry.InitialBackoff).
		String() +
		NewSection("Circuit Breaker").
			Add("name", c.CircuitBreaker.Name).
			Add("maxrequests", c.CircuitBreaker.MaxRequests).
			Add("consecutivefailures", c.CircuitBreaker.ConsecutiveFailures).
			Add("errorratepercent", c.CircuitBreaker.ErrorRatePercent).
			Add("opentimeout", c.CircuitBreaker.OpenTimeout).
			String()
}

func (c *ResilienceConfig) Validate() error {
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be greater than 0")
	}
	if c.Retry.InitialBackoff <= 0 {
		return fmt.Errorf("retry.initial_backoff must be greater than 0")
	}
	if c.CircuitBreaker.Name == "" {
		return fmt.Errorf("circuit_breaker.name must not be empty")
	}
	if c.CircuitBreaker.MaxRequests == 0 {
		return fmt.Errorf("circuit_breaker.max_requests must be greater than 0")
	}
	if c.CircuitBreaker.ConsecutiveFailures <= 0 {
		return fmt.Errorf("circuit_breaker.consecutive_failures must be greater than 0")
	}
	if c.CircuitBreaker.ErrorRatePercent < 0 || c.CircuitBreaker.ErrorRatePercent > 100 {
		return fmt.Errorf("circuit_breaker.error_rate_percent must be between 0 and 100")
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		return fmt.Errorf("circuit_breaker.open_timeout must be greater than 0")
	}
	return nil
}
