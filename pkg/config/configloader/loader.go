package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	defaultConfigFile = "config.yaml"
	dotEnvFile        = ".env"
)

type Validator interface {
	Validate() error
}

// layer is one configuration source; later layers override earlier ones.
type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// Load reads the configuration of a service from the yaml file, the .env file and the
// process environment, in order of increasing priority, then validates it.
//
// Environment keys carry the upper-cased service name as prefix: INVOICE_SERVER_PORT
// sets server.port and INVOICE_CONFIG_FILE replaces the yaml file location.
func Load[T Validator](serviceName string) (T, error) {
	var cfg T
	prefix := strings.ToUpper(serviceName) + "_"

	k := koanf.New(".")
	for _, l := range layers(prefix) {
		if err := k.Load(l.provider, l.parser); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			log.Printf("WARN: skipping %s config: %v", l.name, err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func layers(prefix string) []layer {
	configFile := os.Getenv(prefix + "CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	transform := keyTransformer(prefix)

	ls := []layer{{name: "yaml " + configFile, provider: file.Provider(configFile), parser: yaml.Parser()}}
	if dotEnv, ok := readDotEnv(prefix, transform); ok {
		ls = append(ls, layer{name: dotEnvFile, provider: confmap.Provider(dotEnv, ".")})
	}
	return append(ls, layer{name: "environment", provider: env.Provider(prefix, ".", transform)})
}

// readDotEnv returns the prefixed entries of the .env file keyed by their koanf path.
func readDotEnv(prefix string, transform func(string) string) (map[string]any, bool) {
	entries, err := godotenv.Read(dotEnvFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error reading %s file: %v", dotEnvFile, err)
		}
		return nil, false
	}
	out := make(map[string]any, len(entries))
	for key, value := range entries {
		if strings.HasPrefix(strings.ToUpper(key), prefix) {
			out[transform(key)] = value
		}
	}
	return out, true
}

// keyTransformer maps INVOICE_SERVER_PORT to server.port.
func keyTransformer(prefix string) func(string) string {
	lowerPrefix := strings.ToLower(prefix)
	return func(key string) string {
		key = strings.TrimPrefix(strings.ToLower(key), lowerPrefix)
		return strings.ReplaceAll(key, "_", ".")
	}
}
