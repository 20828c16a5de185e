package config

import (
	"fmt"
	"time"
)

type GrpcServerConfig struct {
	Port              string `koanf:"port"`
	ReflectionEnabled bool   `koanf:"reflection"`
	// HealthInterval controls how often the health status is refreshed from the store.
	HealthInterval time.Duration `koanf:"healthinterval"`
}

func (c *GrpcServerConfig) String() string {
	return NewSection("gRPC Server").
		Add("port", c.Port).
		Add("reflection", c.ReflectionEnabled).
		Add("healthinterval", c.HealthInterval).
		String()
}

func (c *GrpcServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("gRPC port is not configured")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("gRPC health interval must be greater than zero")
	}
	return nil
}
