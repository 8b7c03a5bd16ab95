package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config represents the server configuration
type Config struct {
	Name        string      `json:"name" yaml:"name" toml:"name"`
	Version     string      `json:"version" yaml:"version" toml:"version"`
	Description string      `json:"description" yaml:"description" toml:"description"`
	Server      Server      `json:"server" yaml:"server" toml:"server"`
	Transports  []Transport `json:"transports" yaml:"transports" toml:"transports"`
	Logging     Logging     `json:"logging" yaml:"logging" toml:"logging"`
	History     History     `json:"history" yaml:"history" toml:"history"`
	Animation   Animation   `json:"animation" yaml:"animation" toml:"animation"`
	Document    Document    `json:"document" yaml:"document" toml:"document"`
}

// Server represents server configuration
type Server struct {
	Host  string `json:"host" yaml:"host" toml:"host" env:"TWIN_HOST"`
	Port  int    `json:"port" yaml:"port" toml:"port" env:"TWIN_PORT"`
	Debug bool   `json:"debug" yaml:"debug" toml:"debug" env:"TWIN_DEBUG"`
}

// Transport represents a transport configuration
type Transport struct {
	Type    string `json:"type" yaml:"type" toml:"type"`
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// Logging represents logging configuration
type Logging struct {
	Level  string `json:"level" yaml:"level" toml:"level" env:"TWIN_LOG_LEVEL"`
	Format string `json:"format" yaml:"format" toml:"format" env:"TWIN_LOG_FORMAT"`
	Path   string `json:"path" yaml:"path" toml:"path" env:"TWIN_LOG_PATH"`
}

// History bounds the undo log.
type History struct {
	Limit int `json:"limit" yaml:"limit" toml:"limit" env:"TWIN_HISTORY_LIMIT"`
}

// Animation sets the render tick and the progress notification cadence.
type Animation struct {
	TickIntervalMS     int `json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms" env:"TWIN_TICK_INTERVAL_MS"`
	ProgressIntervalMS int `json:"progress_interval_ms" yaml:"progress_interval_ms" toml:"progress_interval_ms" env:"TWIN_PROGRESS_INTERVAL_MS"`
}

func (a Animation) TickInterval() time.Duration {
	return time.Duration(a.TickIntervalMS) * time.Millisecond
}

func (a Animation) ProgressInterval() time.Duration {
	return time.Duration(a.ProgressIntervalMS) * time.Millisecond
}

// Document selects where named documents are kept.
type Document struct {
	Store      string `json:"store" yaml:"store" toml:"store" env:"TWIN_DOCUMENT_STORE"`
	Dir        string `json:"dir" yaml:"dir" toml:"dir" env:"TWIN_DOCUMENT_DIR"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" toml:"sqlite_path" env:"TWIN_DOCUMENT_SQLITE_PATH"`
	Watch      bool   `json:"watch" yaml:"watch" toml:"watch" env:"TWIN_DOCUMENT_WATCH"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	base := baseDir()
	return &Config{
		Name:        "twinscene-go",
		Version:     "0.1.0",
		Description: "Scene editing server with undo history and keyframe animation",
		Server: Server{
			Host:  "localhost",
			Port:  9080,
			Debug: false,
		},
		Transports: []Transport{
			{Type: TransportStdio, Enabled: false},
			{Type: TransportHTTP, Enabled: true},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Path:   filepath.Join(base, "logs", "twinscene.log"),
		},
		History: History{
			Limit: 30,
		},
		Animation: Animation{
			TickIntervalMS:     10,
			ProgressIntervalMS: 100,
		},
		Document: Document{
			Store:      StoreFile,
			Dir:        filepath.Join(base, "documents"),
			SQLitePath: filepath.Join(base, "twinscene.db"),
			Watch:      true,
		},
	}
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".twinscene")
}

// LoadConfig loads the configuration from a JSON, YAML or TOML file. A .env
// file next to it or in the working directory is read first; environment
// variables take precedence over the file.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := unmarshal(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	loadDotEnv(path)
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration in the format given by the extension.
func SaveConfig(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	data, err := marshal(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch format(path) {
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	case "toml":
		return toml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func marshal(path string, cfg *Config) ([]byte, error) {
	switch format(path) {
	case "yaml":
		return yaml.Marshal(cfg)
	case "toml":
		return toml.Marshal(cfg)
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); dir != "." {
		candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if raw := os.Getenv("TWIN_TRANSPORTS"); raw != "" {
		enabled := make(map[string]bool)
		for _, t := range parseCSV(raw) {
			enabled[strings.ToLower(t)] = true
		}
		for _, typ := range []string{TransportStdio, TransportHTTP} {
			cfg.setTransport(typ, enabled[typ])
		}
	}
	return nil
}

func (c *Config) setTransport(typ string, enabled bool) {
	for i := range c.Transports {
		if c.Transports[i].Type == typ {
			c.Transports[i].Enabled = enabled
			return
		}
	}
	c.Transports = append(c.Transports, Transport{Type: typ, Enabled: enabled})
}

// TransportEnabled reports whether a transport of type typ is enabled.
func (c *Config) TransportEnabled(typ string) bool {
	for _, t := range c.Transports {
		if t.Type == typ && t.Enabled {
			return true
		}
	}
	return false
}

// Normalize canonicalizes config values so downstream validation and runtime
// logic operate on stable representations.
func (c *Config) Normalize() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
	for i := range c.Transports {
		c.Transports[i].Type = strings.ToLower(strings.TrimSpace(c.Transports[i].Type))
	}
	c.Document.Store = strings.ToLower(strings.TrimSpace(c.Document.Store))
	if c.Document.Store == "" {
		c.Document.Store = StoreFile
	}
	c.Document.Dir = strings.TrimSpace(c.Document.Dir)
	c.Document.SQLitePath = strings.TrimSpace(c.Document.SQLitePath)
	if c.History.Limit == 0 {
		c.History.Limit = 30
	}
	if c.Animation.TickIntervalMS == 0 {
		c.Animation.TickIntervalMS = 10
	}
	if c.Animation.ProgressIntervalMS == 0 {
		c.Animation.ProgressIntervalMS = 100
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid port number")
	}

	if c.Server.Host == "" {
		return errors.New("host cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("invalid log level")
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.New("invalid log format")
	}

	if c.Logging.Path == "" {
		return errors.New("log path cannot be empty")
	}

	validTransportTypes := map[string]bool{
		TransportStdio: true,
		TransportHTTP:  true,
	}

	enabledTransports := 0
	for _, t := range c.Transports {
		if !validTransportTypes[t.Type] {
			return fmt.Errorf("invalid transport type: %s", t.Type)
		}
		if t.Enabled {
			enabledTransports++
		}
	}

	if enabledTransports == 0 {
		return errors.New("at least one transport must be enabled")
	}

	if c.History.Limit < 1 {
		return fmt.Errorf("invalid history limit %d: must be positive", c.History.Limit)
	}

	if c.Animation.TickIntervalMS < 1 || c.Animation.TickIntervalMS > 1000 {
		return fmt.Errorf("invalid tick interval %dms: expected range 1..1000", c.Animation.TickIntervalMS)
	}

	if c.Animation.ProgressIntervalMS < 10 {
		return fmt.Errorf("invalid progress interval %dms: must be at least 10", c.Animation.ProgressIntervalMS)
	}

	switch c.Document.Store {
	case StoreFile:
		if c.Document.Dir == "" {
			return errors.New("document dir cannot be empty")
		}
	case StoreSQLite:
		if c.Document.SQLitePath == "" {
			return errors.New("document sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("invalid document store %q: expected one of [file sqlite]", c.Document.Store)
	}

	return nil
}

// ResolveConfigPath returns the path that should be used for configuration.
func ResolveConfigPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv("TWIN_CONFIG_PATH")); path != "" {
		return path, nil
	}

	for _, candidate := range []string{"config/twinscene.json", "config/twinscene.yaml", "config/twinscene.toml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".twinscene", "config", "twinscene.json"), nil
}

// EnsureDefaultConfig creates a default config file if one does not exist.
func EnsureDefaultConfig(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path cannot be empty")
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	return SaveConfig(NewConfig(), path)
}

func parseCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
