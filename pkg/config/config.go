// Package config reads and writes the configuration file of a scope.
package config

import (
	"path"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/oneconcern/scope/pkg/errors"
)

const (
	// FileName of the configuration, at the root of a scope
	FileName = "scope.yaml"

	// EnvPrefix of environment variables overriding the configuration, e.g. SCOPE_LOGLEVEL
	EnvPrefix = "SCOPE"

	// DefaultMaxMessageSize limits the size of a protocol message
	DefaultMaxMessageSize = "256MB"

	// DefaultImportTTL is how long a failed or successful import is not attempted again for the same id
	DefaultImportTTL = 30 * time.Minute
)

// Storage backends
const (
	BackendLocal  = "localfs"
	BackendBadger = "badger"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
)

var (
	// ErrConfigNotFound is returned when a directory holds no scope configuration
	ErrConfigNotFound = errors.New("scope configuration not found")

	// ErrInvalidConfig is returned when the configuration cannot be used
	ErrInvalidConfig = errors.New("invalid scope configuration")
)

// Storage describes where the objects of a scope live
type Storage struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	Bucket      string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	Path        string `yaml:"path,omitempty" mapstructure:"path"`
	Credentials string `yaml:"credentials,omitempty" mapstructure:"credentials"`
}

// Cache sizes
type Cache struct {
	Components int           `yaml:"components,omitempty" mapstructure:"components"`
	Objects    int           `yaml:"objects,omitempty" mapstructure:"objects"`
	ImportTTL  time.Duration `yaml:"importTTL,omitempty" mapstructure:"importTTL"`
}

// Network settings for remotes and for serving the scope
type Network struct {
	MaxMessageSize string `yaml:"maxMessageSize,omitempty" mapstructure:"maxMessageSize"`
	Listen         string `yaml:"listen,omitempty" mapstructure:"listen"`
}

// Config of a scope
type Config struct {
	Name     string            `yaml:"name" mapstructure:"name"`
	LogLevel string            `yaml:"logLevel,omitempty" mapstructure:"logLevel"`
	ReadOnly bool              `yaml:"readOnly,omitempty" mapstructure:"readOnly"`
	Storage  Storage           `yaml:"storage" mapstructure:"storage"`
	Remotes  map[string]string `yaml:"remotes,omitempty" mapstructure:"remotes"`
	Cache    Cache             `yaml:"cache,omitempty" mapstructure:"cache"`
	Network  Network           `yaml:"network,omitempty" mapstructure:"network"`
}

// Default configuration of a new scope
func Default(name string) *Config {
	return &Config{
		Name:     name,
		LogLevel: "info",
		Storage:  Storage{Backend: BackendLocal},
		Remotes:  make(map[string]string),
		Cache: Cache{
			Components: 1000,
			Objects:    4096,
			ImportTTL:  DefaultImportTTL,
		},
		Network: Network{
			MaxMessageSize: DefaultMaxMessageSize,
			Listen:         ":3000",
		},
	}
}

// Path of the configuration file of a scope
func Path(scopePath string) string {
	return path.Join(scopePath, FileName)
}

// Exists tells if a scope configuration is present
func Exists(fs afero.Fs, scopePath string) (bool, error) {
	return afero.Exists(fs, Path(scopePath))
}

// Load the configuration of the scope at scopePath. Environment variables prefixed with SCOPE_ take precedence.
func Load(fs afero.Fs, scopePath string) (*Config, error) {
	exists, err := Exists(fs, scopePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrConfigNotFound.Wrapf("no %s in %s", FileName, scopePath)
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(Path(scopePath))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default("")
	v.SetDefault("logLevel", defaults.LogLevel)
	v.SetDefault("storage.backend", defaults.Storage.Backend)
	v.SetDefault("cache.components", defaults.Cache.Components)
	v.SetDefault("cache.objects", defaults.Cache.Objects)
	v.SetDefault("cache.importTTL", defaults.Cache.ImportTTL)
	v.SetDefault("network.maxMessageSize", defaults.Network.MaxMessageSize)
	v.SetDefault("network.listen", defaults.Network.Listen)

	if err = v.ReadInConfig(); err != nil {
		return nil, ErrInvalidConfig.Wrap(err)
	}

	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, ErrInvalidConfig.Wrap(err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return &cfg, cfg.Validate()
}

// Write the configuration to the scope directory
func (c *Config) Write(fs afero.Fs, scopePath string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err = fs.MkdirAll(scopePath, 0700); err != nil {
		return err
	}
	return afero.WriteFile(fs, Path(scopePath), b, 0600)
}

// Validate the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrInvalidConfig.Wrapf("a scope must have a name")
	}
	if strings.ContainsAny(c.Name, "/@ ") {
		return ErrInvalidConfig.Wrapf("invalid scope name %q", c.Name)
	}
	switch c.Storage.Backend {
	case "", BackendLocal, BackendBadger:
	case BackendS3, BackendGCS:
		if c.Storage.Bucket == "" {
			return ErrInvalidConfig.Wrapf("storage backend %q requires a bucket", c.Storage.Backend)
		}
	default:
		return ErrInvalidConfig.Wrapf("unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := c.MaxMessageSize(); err != nil {
		return err
	}
	return nil
}

// MaxMessageSize in bytes, parsed from a human readable size such as "256MB"
func (c *Config) MaxMessageSize() (int64, error) {
	if c.Network.MaxMessageSize == "" {
		return units.RAMInBytes(DefaultMaxMessageSize)
	}
	size, err := units.RAMInBytes(c.Network.MaxMessageSize)
	if err != nil {
		return 0, ErrInvalidConfig.Wrapf("max message size: %v", err)
	}
	return size, nil
}
