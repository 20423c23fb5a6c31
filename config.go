package coarsesearch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hupe1980/coarsesearch/codec"
	"github.com/hupe1980/coarsesearch/index"
	"github.com/hupe1980/coarsesearch/resource"
	"gopkg.in/yaml.v3"
)

var configValidate = validator.New()

// Config is the declarative form of the search options, suitable for YAML
// files:
//
//	method: kdtree
//	leaf_size: 16
//	workers: 4
//	compression: lz4
//	log_level: debug
//	resources:
//	  memory_limit_bytes: 67108864
type Config struct {
	Method      index.Method      `yaml:"method"`
	LeafSize    int               `yaml:"leaf_size" validate:"gte=0,lte=65536"`
	Workers     int               `yaml:"workers" validate:"gte=0,lte=4096"`
	Compression codec.Compression `yaml:"compression" validate:"lte=2"`
	LogLevel    string            `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string            `yaml:"log_format" validate:"omitempty,oneof=text json"`
	Resources   resource.Config   `yaml:"resources"`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{Method: index.KDTree}
}

// ParseConfig decodes YAML into a Config starting from DefaultConfig and
// validates the result.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// Validate checks the field constraints of c.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Method.MarshalText(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Options converts c into search options. A resource controller is created
// only when a limit is set.
func (c Config) Options() []Option {
	opts := []Option{
		WithLeafSize(c.LeafSize),
		WithWorkers(c.Workers),
		WithCompression(c.Compression),
	}
	if c.LogLevel != "" || c.LogFormat != "" {
		opts = append(opts, WithLogger(c.logger()))
	}
	if r := c.Resources; r.MemoryLimitBytes > 0 || r.MaxWorkers > 0 || r.IOLimitBytesPerSec > 0 {
		opts = append(opts, WithResourceController(resource.NewController(r)))
	}
	return opts
}

func (c Config) logger() *Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if c.LogFormat == "json" {
		return NewJSONLogger(level)
	}
	return NewTextLogger(level)
}
