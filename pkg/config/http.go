package config

import (
	"fmt"
	"time"
)

type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

func (c *HTTPConfig) String() string {
	return NewSection("HTTP Server").
		Add("server.port", c.Port).
		Add("server.maxHeaderBytes", c.MaxHeaderBytes).
		Add("server.timeout.read", c.Timeout.Read).
		Add("server.timeout.write", c.Timeout.Write).
		Add("server.timeout.idle", c.Timeout.Idle).
		Add("server.timeout.readHeader", c.Timeout.ReadHeader).
		String()
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("invalid HTTP server max header bytes: %d", c.MaxHeaderBytes)
	}
	timeouts := map[string]time.Duration{
		"read":        c.Timeout.Read,
		"write":       c.Timeout.Write,
		"idle":        c.Timeout.Idle,
		"read header": c.Timeout.ReadHeader,
	}
	for name, value := range timeouts {
		if value <= 0 {
			return fmt.Errorf("invalid HTTP server %s timeout: %v", name, value)
		}
	}
	return nil
}
