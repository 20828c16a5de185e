package config

import (
	"fmt"
	"strings"
	"time"
)

type DatabaseConfig struct {
	URL         string        `koanf:"url"`
	Timeout     time.Duration `koanf:"timeout"`
	AutoMigrate bool          `koanf:"automigrate"`
}

func (c *DatabaseConfig) String() string {
	return NewSection("Database").
		Add("url", MaskURL(c.URL)).
		Add("timeout", c.Timeout).
		Add("automigrate", c.AutoMigrate).
		String()
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidPostgresURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://': %s", MaskURL(c.URL))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout must be greater than zero")
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

// MaskURL hides the credentials part of a connection URL.
func MaskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	schemeEnd := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if at == -1 {
		return url
	}
	if schemeEnd == -1 || schemeEnd > at {
		return "****@" + url[at+1:]
	}
	return url[:schemeEnd+3] + "****@" + url[at+1:]
}
