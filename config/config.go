package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	Headers struct {
		// MaxLength limits the size of a single message head section in bytes. It applies
		// separately to the request- or status-line, the header block, every chunk-size line
		// and the trailer block.
		MaxLength int `yaml:"max_length"`
		// Prealloc is the initial capacity of the header storage.
		Prealloc int `yaml:"prealloc"`
	}

	Body struct {
		// MaxSize describes the maximal size of a body, that can be processed. Bodies exceeding
		// it result in errors.ErrBodyTooLarge. In order to disable the setting, use the
		// math.MaxUint64 value.
		MaxSize uint64 `yaml:"max_size"`
		// Prealloc is the initial length for a buffer storing a whole body, if its length isn't
		// known in advance (e.g. chunked transfer encoding.)
		Prealloc int `yaml:"prealloc"`
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int `yaml:"read_buffer_size"`
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration `yaml:"read_timeout"`
	}
)

// Config holds settings used across the parser, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Headers Headers `yaml:"headers"`
	Body    Body    `yaml:"body"`
	NET     NET     `yaml:"net"`
	// Timeout limits how long may receiving the request- or status-line together with the
	// header block take. Zero disables it.
	Timeout time.Duration `yaml:"timeout" test:"nullable"`
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		Headers: Headers{
			// most web-entities limit it to 4-8kb, however there also might be extremely
			// long cookies.
			MaxLength: 16 * 1024,
			Prealloc:  10,
		},
		Body: Body{
			MaxSize:  512 * 1024 * 1024, // 512 megabytes
			Prealloc: 1024,
		},
		NET: NET{
			ReadBufferSize: 4 * 1024,
			ReadTimeout:    90 * time.Second,
		},
	}
}

// Load reads a YAML file and applies it over the defaults. Fields missing in the file
// keep their default values. Durations are written as strings, e.g. "1m30s".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}
