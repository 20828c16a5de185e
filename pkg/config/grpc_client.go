package config

import (
	"fmt"
	"time"
)

type GrpcClientConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
	// Service is the name passed to grpc.health.v1 Check; empty means overall server health.
	Service string `koanf:"service"`
}

func (c *GrpcClientConfig) String() string {
	return NewSection("gRPC Client").
		Add("addr", c.Addr).
		Add("timeout", c.Timeout).
		Add("service", c.Service).
		String()
}

func (c *GrpcClientConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("gRPC address is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("gRPC timeout is not configured")
	}
	return nil
}
