package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/stockbook/pkg/config"
	"github.com/abgdnv/stockbook/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Store      StoreConfig             `koanf:"store"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Mongo      config.MongoConfig      `koanf:"mongo"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Events     EventsConfig            `koanf:"events"`
	Auth       config.AuthConfig       `koanf:"auth"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Health     HealthConfig            `koanf:"health"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `koanf:"driver"`
}

func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown store driver %q, expected one of %s, %s, %s", c.Driver, DriverPostgres, DriverMongo, DriverMemory)
	}
}

// EventsConfig controls publishing of invoice events to NATS JetStream.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Stream  string `koanf:"stream"`
}

func (c *EventsConfig) Validate() error {
	if c.Enabled && c.Stream == "" {
		return fmt.Errorf("events are enabled but the stream name is not configured")
	}
	return nil
}

// HealthConfig bounds the readiness probe.
type HealthConfig struct {
	ReadyTimeout time.Duration `koanf:"readytimeout"`
}

func (c *HealthConfig) Validate() error {
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("health ready timeout must be greater than zero")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())

	b.WriteString(config.NewSection("Store").Add("driver", c.Store.Driver).String())
	switch c.Store.Driver {
	case DriverPostgres:
		b.WriteString(c.Database.String())
	case DriverMongo:
		b.WriteString(c.Mongo.String())
	}

	b.WriteString(config.NewSection("Events").Add("enabled", c.Events.Enabled).Add("stream", c.Events.Stream).String())
	if c.Events.Enabled {
		b.WriteString(c.Nats.String())
	}

	b.WriteString(c.Auth.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())

	b.WriteString(config.NewSection("Health").Add("readytimeout", c.Health.ReadyTimeout).String())

	return b.String()
}

// Validate checks the sections in use; the database section is only required by the postgres driver,
// the mongo section by the mongo driver and the nats section when events are enabled.
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.GRPC,
		&c.Store,
		&c.Events,
		&c.Auth,
		&c.Telemetry,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.Health,
	}
	switch c.Store.Driver {
	case DriverPostgres:
		validators = append(validators, &c.Database)
	case DriverMongo:
		validators = append(validators, &c.Mongo)
	}
	if c.Events.Enabled {
		validators = append(validators, &c.Nats)
	}

	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
