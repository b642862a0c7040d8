// Package config loads and validates the ragsync TOML configuration file.
//
// Environment variable references of the form ${VAR} inside the file are
// expanded before parsing, so secrets like API keys can stay out of the
// file itself.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Default values applied when the file omits a setting.
const (
	DefaultInterval     = time.Hour
	DefaultRequestDelay = 0
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
	DefaultWorkers      = 4
	DefaultHistoryKeep  = 100
	DefaultDataDir      = "~/.ragsync"
)

// Config is the parsed and validated configuration.
type Config struct {
	DataDir   string          `toml:"data_dir"`
	Workers   int             `toml:"workers"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Vector    VectorConfig    `toml:"vector"`
	History   HistoryConfig   `toml:"history"`
	Sources   []SourceConfig  `toml:"sources"`
}

// ChunkingConfig controls how normalized text is split before embedding.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider string `toml:"provider"` // "openai" or "local"
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
}

// VectorConfig selects and configures the vector index backend.
type VectorConfig struct {
	Provider   string `toml:"provider"` // "qdrant" or "memory"
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
}

// HistoryConfig controls run history retention.
type HistoryConfig struct {
	Keep int `toml:"keep"`
}

// SourceConfig describes one source entry in the file. A single entry may
// expand into multiple source instances via ExpandKey/ExpandValues.
type SourceConfig struct {
	Type         string            `toml:"type"`
	Name         string            `toml:"name"`
	Intervals    []string          `toml:"intervals"`
	RequestDelay string            `toml:"request_delay"`
	Stale        string            `toml:"stale"` // "retain" or "purge"
	Config       map[string]string `toml:"config"`

	// ExpandKey/ExpandValues generate one instance per value, with the
	// value substituted into Config[ExpandKey] and appended to the name.
	ExpandKey    string   `toml:"expand_key"`
	ExpandValues []string `toml:"expand_values"`
}

// Load reads, expands, parses and validates the configuration file.
// knownTypes lists the connector types the factory supports.
func Load(path string, knownTypes []string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(knownTypes); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = DefaultChunkSize
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = DefaultChunkOverlap
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Vector.Provider == "" {
		c.Vector.Provider = "memory"
	}
	if c.History.Keep == 0 {
		c.History.Keep = DefaultHistoryKeep
	}
	if strings.HasPrefix(c.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = home + c.DataDir[1:]
		}
	}
}

func (c *Config) validate(knownTypes []string) error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1", domain.ErrInvalidInput)
	}
	if c.Chunking.Size < 1 {
		return fmt.Errorf("%w: chunking.size must be >= 1", domain.ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", domain.ErrInvalidInput)
	}
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("%w: embedding.api_key required for openai provider", domain.ErrInvalidInput)
		}
	case "local":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	switch c.Vector.Provider {
	case "qdrant":
		if c.Vector.URL == "" {
			return fmt.Errorf("%w: vector.url required for qdrant provider", domain.ErrInvalidInput)
		}
		if c.Vector.Collection == "" {
			return fmt.Errorf("%w: vector.collection required for qdrant provider", domain.ErrInvalidInput)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown vector provider %q", domain.ErrInvalidInput, c.Vector.Provider)
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", domain.ErrInvalidInput)
	}

	supported := make(map[string]bool, len(knownTypes))
	for _, t := range knownTypes {
		supported[t] = true
	}

	seen := make(map[string]bool)
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return fmt.Errorf("%w: source %d has no name", domain.ErrInvalidInput, i)
		}
		if !supported[src.Type] {
			return fmt.Errorf("%w: source %q has unknown type %q", domain.ErrUnsupportedType, src.Name, src.Type)
		}
		if (src.ExpandKey == "") != (len(src.ExpandValues) == 0) {
			return fmt.Errorf("%w: source %q must set expand_key and expand_values together", domain.ErrInvalidInput, src.Name)
		}
		switch src.Stale {
		case "", "retain", "purge":
		default:
			return fmt.Errorf("%w: source %q has invalid stale policy %q", domain.ErrInvalidInput, src.Name, src.Stale)
		}
		for _, raw := range src.Intervals {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("%w: source %q interval %q: %v", domain.ErrInvalidInput, src.Name, raw, err)
			}
			if d <= 0 {
				return fmt.Errorf("%w: source %q interval %q must be positive", domain.ErrInvalidInput, src.Name, raw)
			}
		}
		if src.RequestDelay != "" {
			d, err := time.ParseDuration(src.RequestDelay)
			if err != nil || d < 0 {
				return fmt.Errorf("%w: source %q has invalid request_delay %q", domain.ErrInvalidInput, src.Name, src.RequestDelay)
			}
		}

		for _, inst := range expandNames(src) {
			if seen[inst] {
				return fmt.Errorf("%w: duplicate source instance name %q", domain.ErrInvalidInput, inst)
			}
			seen[inst] = true
		}
	}
	return nil
}

// Instances expands the source entries into concrete source instances.
// Must be called on a validated Config.
func (c *Config) Instances() []domain.SourceInstance {
	var out []domain.SourceInstance
	for i := range c.Sources {
		src := &c.Sources[i]

		intervals := make([]time.Duration, 0, len(src.Intervals))
		for _, raw := range src.Intervals {
			d, _ := time.ParseDuration(raw)
			intervals = append(intervals, d)
		}
		if len(intervals) == 0 {
			intervals = []time.Duration{DefaultInterval}
		}

		delay := time.Duration(DefaultRequestDelay)
		if src.RequestDelay != "" {
			delay, _ = time.ParseDuration(src.RequestDelay)
		}

		stale := domain.StaleRetain
		if src.Stale == "purge" {
			stale = domain.StalePurge
		}

		if src.ExpandKey == "" {
			out = append(out, domain.SourceInstance{
				Type:         src.Type,
				Name:         src.Name,
				Config:       cloneConfig(src.Config),
				Intervals:    intervals,
				RequestDelay: delay,
				Stale:        stale,
			})
			continue
		}

		for _, value := range src.ExpandValues {
			cfg := cloneConfig(src.Config)
			cfg[src.ExpandKey] = value
			out = append(out, domain.SourceInstance{
				Type:         src.Type,
				Name:         src.Name + "/" + value,
				Config:       cfg,
				Intervals:    intervals,
				RequestDelay: delay,
				Stale:        stale,
			})
		}
	}
	return out
}

func expandNames(src *SourceConfig) []string {
	if src.ExpandKey == "" {
		return []string{src.Name}
	}
	names := make([]string, 0, len(src.ExpandValues))
	for _, v := range src.ExpandValues {
		names = append(names, src.Name+"/"+v)
	}
	return names
}

func cloneConfig(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
