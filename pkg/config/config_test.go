package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaskURL(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "empty", url: "", expected: "<not configured>"},
		{name: "with credentials", url: "postgres://user:secret@db:5432/app", expected: "postgres://****@db:5432/app"},
		{name: "without credentials", url: "nats://nats:4222", expected: "nats://nats:4222"},
		{name: "password with at sign", url: "mongodb://u:p@ss@mongo:27017", expected: "mongodb://****@mongo:27017"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskURL(tc.url))
		})
	}
}

func TestDatabaseConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     DatabaseConfig
		wantErr bool
	}{
		{name: "valid", cfg: DatabaseConfig{URL: "postgres://u:p@localhost:5432/db", Timeout: time.Second}},
		{name: "missing url", cfg: DatabaseConfig{Timeout: time.Second}, wantErr: true},
		{name: "wrong scheme", cfg: DatabaseConfig{URL: "mysql://localhost", Timeout: time.Second}, wantErr: true},
		{name: "missing timeout", cfg: DatabaseConfig{URL: "postgresql://localhost/db"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMongoConfig_Validate(t *testing.T) {
	valid := MongoConfig{URI: "mongodb://localhost:27017", Database: "stockbook", Timeout: time.Second}
	assert.NoError(t, valid.Validate())

	noDB := valid
	noDB.Database = ""
	assert.Error(t, noDB.Validate())

	badScheme := valid
	badScheme.URI = "http://localhost"
	assert.Error(t, badScheme.Validate())
}

func TestAuthAndTelemetry_DisabledSkipValidation(t *testing.T) {
	auth := AuthConfig{Enabled: false}
	assert.NoError(t, auth.Validate())

	auth.Enabled = true
	assert.Error(t, auth.Validate())

	telemetry := TelemetryConfig{}
	assert.NoError(t, telemetry.Validate())

	telemetry.Traces.Enabled = true
	assert.Error(t, telemetry.Validate())
}

func TestLogConfig_Validate(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "error"} {
		cfg := LogConfig{Level: level}
		assert.NoError(t, cfg.Validate(), level)
	}
	cfg := LogConfig{Level: "verbose"}
	assert.Error(t, cfg.Validate())
}

func TestSection_String(t *testing.T) {
	// given
	s := NewSection("Store").Add("driver", "memory").Add("timeout", 2*time.Second)

	// when
	out := s.String()

	// then
	assert.Equal(t, "\n--- Store ---\n  driver: memory\n  timeout: 2s\n", out)
}
