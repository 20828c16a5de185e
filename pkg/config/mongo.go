package config

import (
	"fmt"
	"strings"
	"time"
)

type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
	// Transactions requires a replica set deployment.
	Transactions bool `koanf:"transactions"`
}

func (c *MongoConfig) String() string {
	return NewSection("MongoDB").
		Add("uri", MaskURL(c.URI)).
		Add("database", c.Database).
		Add("timeout", c.Timeout).
		Add("transactions", c.Transactions).
		String()
}

func (c *MongoConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongo URI is not configured")
	}
	if !strings.HasPrefix(c.URI, "mongodb://") && !strings.HasPrefix(c.URI, "mongodb+srv://") {
		return fmt.Errorf("mongo URI must start with 'mongodb://' or 'mongodb+srv://': %s", MaskURL(c.URI))
	}
	if c.Database == "" {
		return fmt.Errorf("mongo database name is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("mongo connect timeout must be greater than zero")
	}
	return nil
}
