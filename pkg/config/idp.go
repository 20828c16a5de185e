package config

import (
	"fmt"
	"time"
)

// AuthConfig gates the API behind bearer tokens issued by an external IdP.
type AuthConfig struct {
	Enabled bool `koanf:"enabled"`
	IdP     IdP  `koanf:"idp"`
}

type IdP struct {
	JwksURL     string        `koanf:"jwksurl"`
	Issuer      string        `koanf:"issuer"`
	ClientID    string        `koanf:"clientid"`
	MinInterval time.Duration `koanf:"mininterval"`
	// Role, when set, must appear in the token's realm_access.roles.
	Role string `koanf:"role"`
}

func (c *AuthConfig) String() string {
	return NewSection("Auth").
		Add("enabled", c.Enabled).
		Add("idp.jwksurl", c.IdP.JwksURL).
		Add("idp.issuer", c.IdP.Issuer).
		Add("idp.clientid", c.IdP.ClientID).
		Add("idp.mininterval", c.IdP.MinInterval).
		Add("idp.role", c.IdP.Role).
		String()
}

func (c *AuthConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.IdP.Validate()
}

func (c *IdP) Validate() error {
	if c.JwksURL == "" {
		return fmt.Errorf("IdP JWKS URL cannot be empty")
	}
	if c.Issuer == "" {
		return fmt.Errorf("IdP issuer cannot be empty")
	}
	if c.ClientID == "" {
		return fmt.Errorf("IdP client ID cannot be empty")
	}
	if c.MinInterval <= 0 {
		return fmt.Errorf("IdP minimum interval must be greater than zero")
	}
	return nil
}
