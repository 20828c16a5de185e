package config

import (
	"fmt"
	"time"
)

type SubscriberConfig struct {
	Stream     string        `koanf:"stream"`
	Subject    string        `koanf:"subject"`
	Consumer   string        `koanf:"consumer"`
	Batch      int           `koanf:"batch"`
	MaxDeliver int           `koanf:"maxdeliver"`
	Timeout    time.Duration `koanf:"timeout"`
	Interval   time.Duration `koanf:"interval"`
	Workers    int           `koanf:"workers"`
}

func (c *SubscriberConfig) String() string {
	return NewSection("NATS Subscriber").
		Add("stream", c.Stream).
		Add("subject", c.Subject).
		Add("consumer", c.Consumer).
		Add("batch", c.Batch).
		Add("maxdeliver", c.MaxDeliver).
		Add("timeout", c.Timeout).
		Add("interval", c.Interval).
		Add("workers", c.Workers).
		String()
}

func (c *SubscriberConfig) Validate() error {
	if c.Stream == "" {
		return fmt.Errorf("SubscriberConfig: stream is not configured")
	}
	if c.Subject == "" {
		return fmt.Errorf("SubscriberConfig: subject is not configured")
	}
	if c.Consumer == "" {
		return fmt.Errorf("SubscriberConfig: consumer is not configured")
	}
	if c.Batch <= 0 {
		return fmt.Errorf("SubscriberConfig: batch must be greater than zero")
	}
	if c.MaxDeliver < 0 {
		return fmt.Errorf("SubscriberConfig: maxdeliver must not be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("SubscriberConfig: timeout must be greater than zero")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("SubscriberConfig: interval must be greater than zero")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("SubscriberConfig: workers must be greater than zero")
	}
	return nil
}
