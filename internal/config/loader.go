package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/invopop/jsonschema"
	pkgconfig "github.com/goran-ethernal/PoolSync/pkg/config"
	"gopkg.in/yaml.v3"
)

type decodeFunc func(data []byte, cfg *pkgconfig.Config) error

var decoders = map[string]decodeFunc{
	".yaml": func(data []byte, cfg *pkgconfig.Config) error { return yaml.Unmarshal(data, cfg) },
	".yml":  func(data []byte, cfg *pkgconfig.Config) error { return yaml.Unmarshal(data, cfg) },
	".json": func(data []byte, cfg *pkgconfig.Config) error { return json.Unmarshal(data, cfg) },
	".toml": func(data []byte, cfg *pkgconfig.Config) error {
		_, err := toml.Decode(string(data), cfg)
		return err
	},
}

// LoadFromFile loads configuration from a file, picking the format by extension
// (.yaml, .yml, .json or .toml).
// ${VAR} references in the file are expanded from the environment before parsing.
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := decoders[ext]; !ok {
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json, .toml)", ext)
	}

	return load(path, ext)
}

func LoadFromYAML(path string) (*pkgconfig.Config, error) { return load(path, ".yaml") }

func LoadFromJSON(path string) (*pkgconfig.Config, error) { return load(path, ".json") }

func LoadFromTOML(path string) (*pkgconfig.Config, error) { return load(path, ".toml") }

func load(path, ext string) (*pkgconfig.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := decoders[ext]([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", strings.ToUpper(ext[1:]), err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&pkgconfig.Config{})
	schema.Title = "PoolSync configuration"

	return json.MarshalIndent(schema, "", "  ")
}
