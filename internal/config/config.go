package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/larsfn/minterra/internal/core"
	"github.com/larsfn/minterra/internal/mapping"
)

// MappingEnvVar may hold the credential mapping as an inline JSON object,
// the way a function runtime injects it. When set, it takes precedence over
// any mapping configured in the file.
const MappingEnvVar = "MINTERRA_MAPPING"

type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`

	TFC   TFCConfig   `yaml:"tfc"`
	Mint  MintConfig  `yaml:"mint"`
	Audit AuditConfig `yaml:"audit"`

	// Mappings holds the organization/workspace to service-account mapping
	// inline. Alternatively MappingFile points at a YAML document of the
	// same shape.
	Mappings    map[string]string `yaml:"mappings"`
	MappingFile string            `yaml:"mapping_file"`

	// AdminKey signs admin session tokens. The admin surface is disabled
	// when empty.
	AdminKey string `yaml:"admin_key"`
}

// TFCConfig configures the automation platform client.
type TFCConfig struct {
	// Address of the HCP Terraform API. Defaults to https://app.terraform.io.
	Address string `yaml:"address"`

	// Timeout bounds each upstream call.
	Timeout time.Duration `yaml:"timeout"`
}

// MintConfig configures minted-token parameters.
type MintConfig struct {
	// Lifetime of minted tokens. Defaults to one hour.
	Lifetime time.Duration `yaml:"lifetime"`

	// Scopes requested for minted tokens. Defaults to cloud-platform.
	Scopes []string `yaml:"scopes"`
}

// AuditConfig selects and configures the audit sink.
type AuditConfig struct {
	Enabled bool           `yaml:"enabled"`
	Type    string         `yaml:"type"`    // "file" or "memory"
	Config  map[string]any `yaml:",inline"` // sink-specific fields
}

// FileSinkConfig are the sink-specific fields for the "file" audit type.
type FileSinkConfig struct {
	Path string `mapstructure:"path"`
}

// DecodeFileSink extracts the file sink settings from the inline config.
func (a AuditConfig) DecodeFileSink() (*FileSinkConfig, error) {
	var sink FileSinkConfig
	if err := mapstructure.Decode(a.Config, &sink); err != nil {
		return nil, fmt.Errorf("decoding audit file sink config: %w", err)
	}
	if sink.Path == "" {
		return nil, fmt.Errorf("audit type \"file\" requires 'path'")
	}
	return &sink, nil
}

// Load reads and parses the configuration file at the given path and applies
// defaults. A missing or malformed file is fatal; the process must refuse to
// serve rather than run with silently empty configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Wrap(core.KindConfig, "reading config file", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.Wrap(core.KindConfig, "parsing config file", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with defaults applied and no mapping source.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.TFC.Address == "" {
		c.TFC.Address = "https://app.terraform.io"
	}
	if c.TFC.Timeout <= 0 {
		c.TFC.Timeout = 10 * time.Second
	}
	if c.Mint.Lifetime <= 0 {
		c.Mint.Lifetime = time.Hour
	}
}

func (c *Config) Validate() error {
	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "file":
			if _, err := c.Audit.DecodeFileSink(); err != nil {
				return core.Wrap(core.KindConfig, "invalid audit config", err)
			}
		case "memory", "":
		default:
			return core.Errf(core.KindConfig, "unknown audit type %q", c.Audit.Type)
		}
	}
	return nil
}

// ResolveMappings builds the immutable mapping store from the first
// configured source: the environment variable, the mapping file, then the
// inline mapping. Loading happens exactly once per process; a broker with
// zero mappings can authorize nothing and refuses to start.
func (c *Config) ResolveMappings() (*mapping.Store, error) {
	var (
		store *mapping.Store
		err   error
	)
	switch {
	case os.Getenv(MappingEnvVar) != "":
		store, err = mapping.Parse([]byte(os.Getenv(MappingEnvVar)))
	case c.MappingFile != "":
		store, err = mapping.LoadFile(c.MappingFile)
	case c.Mappings != nil:
		store, err = mapping.New(c.Mappings)
	default:
		return nil, core.Errf(core.KindConfig, "no credential mapping configured (set %s, mapping_file or mappings)", MappingEnvVar)
	}
	if err != nil {
		return nil, err
	}
	if store.Len() == 0 {
		return nil, core.Errf(core.KindConfig, "credential mapping is empty; refusing to serve")
	}
	return store, nil
}
