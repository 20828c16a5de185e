package config

import (
	"fmt"
	"time"
)

// maxShutdownTimeout keeps the drain window below the default Kubernetes grace period.
const maxShutdownTimeout = 30 * time.Second

type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return NewSection("Shutdown").Add("timeout", c.Timeout).String()
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	if c.Timeout > maxShutdownTimeout {
		return fmt.Errorf("shutdown timeout %s exceeds the maximum of %s", c.Timeout, maxShutdownTimeout)
	}
	return nil
}
