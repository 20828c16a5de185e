package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/stockbook/pkg/config"
	"github.com/abgdnv/stockbook/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	Log            config.LogConfig        `koanf:"log"`
	PProf          config.PProfConfig      `koanf:"pprof"`
	Nats           config.NATSConfig       `koanf:"nats"`
	Subscriber     config.SubscriberConfig `koanf:"subscriber"`
	InvoiceService config.GrpcClientConfig `koanf:"invoiceservice"`
	Resilience     config.ResilienceConfig `koanf:"resilience"`
	Alerts         AlertsConfig            `koanf:"alerts"`
	ProbesConfig   config.ProbesConfig     `koanf:"probes"`
	Shutdown       config.ShutdownConfig   `koanf:"shutdown"`
}

// AlertsConfig controls which stock levels are reported.
type AlertsConfig struct {
	LowStockThreshold int64 `koanf:"lowstockthreshold"`
}

func (c *AlertsConfig) String() string {
	return config.NewSection("Alerts").Add("lowstockthreshold", c.LowStockThreshold).String()
}

func (c *AlertsConfig) Validate() error {
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("alerts: lowstockthreshold must not be negative")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(c.InvoiceService.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Alerts.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.ProbesConfig.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.Log,
		&c.PProf,
		&c.Nats,
		&c.Subscriber,
		&c.InvoiceService,
		&c.Resilience,
		&c.Alerts,
		&c.ProbesConfig,
		&c.Shutdown,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
