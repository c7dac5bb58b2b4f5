// Copyright 2025 the copyfx authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔍 FilterArgs narrows which files of a source are copied
type FilterArgs struct {
	Include []string `json:"include,omitempty" yaml:"include,omitempty"` // Keep only matching files
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"` // Drop matching files; wins over include
}

// 🧹 ReclaimArgs tunes partial-file cleanup after aborted transfers
type ReclaimArgs struct {
	MaxAttempts    int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`       // Delete attempts before giving up
	InitialBackoff string `json:"initial_backoff,omitempty" yaml:"initial_backoff,omitempty"` // e.g. "100ms"
	MaxBackoff     string `json:"max_backoff,omitempty" yaml:"max_backoff,omitempty"`         // e.g. "10s"

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Backoffs returns the parsed backoff durations. Valid only after Validate.
func (r *ReclaimArgs) Backoffs() (initial, max time.Duration) {
	return r.initialBackoff, r.maxBackoff
}

// 📚 Config represents the complete configuration
type Config struct {
	Sources     []string     `json:"sources" yaml:"sources"`
	Destination string       `json:"destination" yaml:"destination"`
	Overwrite   bool         `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
	Native      *bool        `json:"native,omitempty" yaml:"native,omitempty"` // nil means true
	Passthrough bool         `json:"passthrough,omitempty" yaml:"passthrough,omitempty"`
	Recursive   bool         `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	BufferSize  int          `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"` // Streamed chunk size in bytes
	Filter      *FilterArgs  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Reclaim     *ReclaimArgs `json:"reclaim,omitempty" yaml:"reclaim,omitempty"`
}

// UseNative reports whether the OS copy primitive should be probed. Defaults
// to true when the config does not say.
func (cfg *Config) UseNative() bool {
	return cfg.Native == nil || *cfg.Native
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if len(cfg.Sources) == 0 {
		return errors.Errorf("at least one source is required")
	}
	if cfg.Destination == "" {
		return errors.Errorf("destination is required")
	}
	if cfg.BufferSize < 0 {
		return errors.Errorf("buffer_size must not be negative")
	}

	cfg.Destination = filepath.Clean(cfg.Destination)

	if cfg.Reclaim != nil {
		if cfg.Reclaim.MaxAttempts < 0 {
			return errors.Errorf("reclaim.max_attempts must not be negative")
		}
		var err error
		if cfg.Reclaim.InitialBackoff != "" {
			cfg.Reclaim.initialBackoff, err = time.ParseDuration(cfg.Reclaim.InitialBackoff)
			if err != nil {
				return errors.Errorf("parsing reclaim.initial_backoff: %w", err)
			}
		}
		if cfg.Reclaim.MaxBackoff != "" {
			cfg.Reclaim.maxBackoff, err = time.ParseDuration(cfg.Reclaim.MaxBackoff)
			if err != nil {
				return errors.Errorf("parsing reclaim.max_backoff: %w", err)
			}
		}
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s -> %s", strings.Join(cfg.Sources, ", "), cfg.Destination)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

// 📝 Parse parses the config from YAML
func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// 🔧 CopyfxParser handles the extensionless .copyfx dotfile, which may be
// written in either YAML or HCL. YAML is tried first.
type CopyfxParser struct{}

func init() {
	Register(&CopyfxParser{})
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *CopyfxParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".copyfx")
}

// 📝 Parse parses the config as YAML, falling back to HCL
func (p *CopyfxParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	cfg, yamlErr := (&YAMLParser{}).Parse(ctx, data)
	if yamlErr == nil {
		return cfg, nil
	}
	cfg, hclErr := (&HCLParser{}).Parse(ctx, data)
	if hclErr == nil {
		return cfg, nil
	}
	return nil, errors.Errorf("parsing .copyfx as YAML (%v) or HCL: %w", yamlErr, hclErr)
}
