package config

import (
	"errors"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"plankton/pkg/metadata"
	"plankton/pkg/objectstore"
)

// Backend keys understood by the image backend registry.
const (
	BackendPithos  = "pithos"
	BackendCatalog = "catalog"
)

type Formats struct {
	Allowed []string `yaml:"allowed"`
	Default string   `yaml:"default"`
}

type FormatsConfig struct {
	Disk      Formats `yaml:"disk"`
	Container Formats `yaml:"container"`
}

type MetadataConfig struct {
	MaxKeyLength   int `yaml:"maxKeyLength"`
	MaxValueLength int `yaml:"maxValueLength"`
}

type CatalogConfig struct {
	File string `yaml:"file"`
}

type Config struct {
	Backend  string         `yaml:"backend"`
	Database string         `yaml:"database"`
	PoolSize int            `yaml:"poolSize"`
	Formats  FormatsConfig  `yaml:"formats"`
	Metadata MetadataConfig `yaml:"metadata"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	LogLevel string         `yaml:"logLevel"`
}

var (
	ErrConfigFileUnreadable      = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable  = errors.New("config file is unmarshallable")
	ErrBackendMissing            = errors.New("backend is missing in config")
	ErrDatabaseMissing           = errors.New("database is missing in config and is required by the pithos backend")
	ErrCatalogFileMissing        = errors.New("catalog.file is missing in config and is required by the catalog backend")
	ErrDiskFormatsMissing        = errors.New("formats.disk.allowed is empty in config")
	ErrContainerFormatsMissing   = errors.New("formats.container.allowed is empty in config")
	ErrDefaultDiskFormatInvalid  = errors.New("formats.disk.default is not in formats.disk.allowed")
	ErrDefaultContainerFormatBad = errors.New("formats.container.default is not in formats.container.allowed")
	ErrMetadataLimitsInvalid     = errors.New("metadata limits must be positive")
	ErrMetadataKeyLengthTooShort = errors.New("metadata.maxKeyLength leaves no room for property names")
	ErrPoolSizeInvalid           = errors.New("poolSize must be positive")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:  BackendPithos,
		Database: "data/plankton.db",
		PoolSize: objectstore.DefaultPoolSize,
		Formats: FormatsConfig{
			Disk: Formats{
				Allowed: []string{"raw", "qcow2", "vmdk", "vdi", "iso", "diskdump", "extdump", "ntfsdump"},
				Default: "diskdump",
			},
			Container: Formats{
				Allowed: []string{"aki", "ari", "ami", "bare", "ovf"},
				Default: "bare",
			},
		},
		Metadata: MetadataConfig{
			MaxKeyLength:   metadata.DefaultMaxKeyLength,
			MaxValueLength: metadata.DefaultMaxValueLength,
		},
		LogLevel: "info",
	}
}

// Load reads configFile over the defaults. An empty path or a missing file yields the defaults.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, ErrConfigFileUnreadable
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, ErrConfigFileUnmarshallable
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for the selected backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case "":
		return ErrBackendMissing
	case BackendPithos:
		if c.Database == "" {
			return ErrDatabaseMissing
		}
	case BackendCatalog:
		if c.Catalog.File == "" {
			return ErrCatalogFileMissing
		}
	}

	if c.PoolSize <= 0 {
		return ErrPoolSizeInvalid
	}

	if len(c.Formats.Disk.Allowed) == 0 {
		return ErrDiskFormatsMissing
	}
	if !slices.Contains(c.Formats.Disk.Allowed, c.Formats.Disk.Default) {
		return ErrDefaultDiskFormatInvalid
	}
	if len(c.Formats.Container.Allowed) == 0 {
		return ErrContainerFormatsMissing
	}
	if !slices.Contains(c.Formats.Container.Allowed, c.Formats.Container.Default) {
		return ErrDefaultContainerFormatBad
	}

	if c.Metadata.MaxKeyLength <= 0 || c.Metadata.MaxValueLength <= 0 {
		return ErrMetadataLimitsInvalid
	}
	if c.Metadata.MaxKeyLength <= len(metadata.Prefix)+len(metadata.PropertyPrefix) {
		return ErrMetadataKeyLengthTooShort
	}

	return nil
}

// Mapper returns the metadata mapper for the configured limits.
func (c *Config) Mapper() metadata.Mapper {
	return metadata.NewMapper(c.Metadata.MaxKeyLength, c.Metadata.MaxValueLength)
}
