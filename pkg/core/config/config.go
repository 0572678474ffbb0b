// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     config
// Description: Typed application configuration for CLI and services
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/msto63/callexpr/foundation/callexpr/ast"
	"github.com/msto63/callexpr/foundation/callexpr/parser"
	fconfig "github.com/msto63/callexpr/foundation/core/config"
	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	mdwlog "github.com/msto63/callexpr/foundation/core/log"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. CALLEXPR_SERVER_GRPC_PORT
	EnvPrefix = "CALLEXPR"

	// EnvConfigPath names the variable holding the config file path
	EnvConfigPath = "CALLEXPR_CONFIG"
)

// Config holds the complete application configuration
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Parser  ParserConfig  `toml:"parser" yaml:"parser"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Store   StoreConfig   `toml:"store" yaml:"store"`

	// Source is the file the configuration was loaded from, empty for defaults
	Source string `toml:"-" yaml:"-"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name" yaml:"name"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
	LogFile   string `toml:"log_file" yaml:"log_file"` // optional copy of all log output
}

// ParserConfig holds parser limits
type ParserConfig struct {
	MaxInputLength int      `toml:"max_input_length" yaml:"max_input_length"`
	MaxDepth       int      `toml:"max_depth" yaml:"max_depth"`
	CacheSize      int      `toml:"cache_size" yaml:"cache_size"` // 0 disables the tree cache
	CacheTTL       Duration `toml:"cache_ttl" yaml:"cache_ttl"`
}

// ServerConfig holds gRPC and HTTP listener settings
type ServerConfig struct {
	Host            string   `toml:"host" yaml:"host"`
	GRPCPort        int      `toml:"grpc_port" yaml:"grpc_port"`
	HTTPPort        int      `toml:"http_port" yaml:"http_port"`
	Reflection      bool     `toml:"reflection" yaml:"reflection"`
	ReadTimeout     Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBatchSize    int      `toml:"max_batch_size" yaml:"max_batch_size"`
}

// StoreConfig holds parse history settings
type StoreConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled"`
	Path          string `toml:"path" yaml:"path"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration with environment overrides
func Default() *Config {
	src, _ := fconfig.LoadBytes(nil, fconfig.FormatTOML, fconfig.LoadOptions{EnvPrefix: EnvPrefix})
	cfg, err := fromSource(src)
	if err != nil {
		// a malformed override falls back to the plain defaults
		cfg = &Config{}
		cfg.applyDefaults()
	}
	return cfg
}

// Load loads configuration from a TOML or YAML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	src, err := fconfig.LoadWithOptions(path, fconfig.LoadOptions{
		Format:    fconfig.FormatAuto,
		EnvPrefix: EnvPrefix,
	})
	if err != nil {
		return nil, err
	}

	cfg, err := fromSource(src)
	if err != nil {
		return nil, mdwerror.Wrap(err, "invalid config").WithDetail("path", path)
	}
	cfg.Source = path
	return cfg, nil
}

// LoadFromEnv loads configuration from the CALLEXPR_CONFIG environment
// variable or a default location. Without a config file the defaults apply.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}

	for _, p := range DefaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

// DefaultPaths lists the locations searched by LoadFromEnv
func DefaultPaths() []string {
	paths := []string{
		"./configs/callexpr.toml",
		"./callexpr.toml",
		"./callexpr.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config/callexpr/config.toml"))
	}
	return paths
}

// fromSource builds the typed configuration from a generic source
func fromSource(src *fconfig.Config) (*Config, error) {
	cfg := &Config{
		General: GeneralConfig{
			Name:      src.GetString("general.name"),
			LogLevel:  src.GetString("general.log_level"),
			LogFormat: src.GetString("general.log_format"),
			LogFile:   src.GetString("general.log_file"),
		},
		Parser: ParserConfig{
			MaxInputLength: src.GetInt("parser.max_input_length"),
			MaxDepth:       src.GetInt("parser.max_depth"),
			CacheSize:      src.GetInt("parser.cache_size"),
		},
		Server: ServerConfig{
			Host:         src.GetString("server.host"),
			GRPCPort:     src.GetInt("server.grpc_port"),
			HTTPPort:     src.GetInt("server.http_port"),
			Reflection:   src.GetBool("server.reflection", true),
			MaxBatchSize: src.GetInt("server.max_batch_size"),
		},
		Store: StoreConfig{
			Enabled:       src.GetBool("store.enabled"),
			Path:          src.GetString("store.path"),
			RetentionDays: src.GetInt("store.retention_days"),
		},
	}

	durations := map[string]*Duration{
		"parser.cache_ttl":        &cfg.Parser.CacheTTL,
		"server.read_timeout":     &cfg.Server.ReadTimeout,
		"server.write_timeout":    &cfg.Server.WriteTimeout,
		"server.shutdown_timeout": &cfg.Server.ShutdownTimeout,
	}
	for key, d := range durations {
		raw := src.GetString(key)
		if raw == "" {
			continue
		}
		if err := d.UnmarshalText([]byte(raw)); err != nil {
			return nil, mdwerror.Wrap(err, fmt.Sprintf("invalid duration for %s", key)).
				WithCode(mdwerror.CodeConfigError).
				WithDetail("key", key)
		}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "callexpr"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "console"
	}

	// Parser
	if c.Parser.MaxInputLength == 0 {
		c.Parser.MaxInputLength = 65536
	}
	if c.Parser.MaxDepth == 0 {
		c.Parser.MaxDepth = parser.DefaultMaxDepth
	}
	if c.Parser.CacheTTL.Duration == 0 {
		c.Parser.CacheTTL.Duration = 10 * time.Minute
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 9310
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8310
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 15 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 30 * time.Second
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout.Duration = 10 * time.Second
	}
	if c.Server.MaxBatchSize == 0 {
		c.Server.MaxBatchSize = 1000
	}

	// Store
	if c.Store.Path == "" {
		c.Store.Path = "./data/callexpr.db"
	}
	if c.Store.RetentionDays == 0 {
		c.Store.RetentionDays = 30
	}
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.Store.Path = os.ExpandEnv(c.Store.Path)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var problems []string
	if c.Parser.MaxInputLength < 0 {
		problems = append(problems, "parser.max_input_length must not be negative")
	}
	if c.Parser.MaxDepth < 0 {
		problems = append(problems, "parser.max_depth must not be negative")
	}
	if c.Parser.MaxDepth > ast.MaxEncodableDepth {
		problems = append(problems, fmt.Sprintf("parser.max_depth %d exceeds %d", c.Parser.MaxDepth, ast.MaxEncodableDepth))
	}
	if c.Parser.CacheSize < 0 {
		problems = append(problems, "parser.cache_size must not be negative")
	}
	if p := c.Server.GRPCPort; p < 1 || p > 65535 {
		problems = append(problems, fmt.Sprintf("server.grpc_port %d out of range", p))
	}
	if p := c.Server.HTTPPort; p < 1 || p > 65535 {
		problems = append(problems, fmt.Sprintf("server.http_port %d out of range", p))
	}
	if c.Server.GRPCPort == c.Server.HTTPPort {
		problems = append(problems, fmt.Sprintf("server.grpc_port and server.http_port are both %d", c.Server.GRPCPort))
	}
	if c.Server.MaxBatchSize < 0 {
		problems = append(problems, "server.max_batch_size must not be negative")
	}
	if _, err := mdwlog.ParseLevel(c.General.LogLevel); err != nil {
		problems = append(problems, "general.log_level: "+err.Error())
	}
	if _, err := mdwlog.ParseFormat(c.General.LogFormat); err != nil {
		problems = append(problems, "general.log_format: "+err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	return mdwerror.New("invalid configuration: " + strings.Join(problems, "; ")).
		WithCode(mdwerror.CodeConfigError).
		WithOperation("config.Validate")
}

// GRPCAddress returns host:port of the gRPC listener
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// HTTPAddress returns host:port of the HTTP gateway
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// WriteTOML writes the effective configuration as TOML
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
