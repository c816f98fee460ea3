package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "graphboot/internal/errors"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "GRAPHBOOT_"

// neo4jEnvPrefix maps GRAPHBOOT_NEO4J_<NAME> to the neo4j property <name>.
const neo4jEnvPrefix = EnvPrefix + "NEO4J_"

// Loader loads configuration from multiple sources.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	lookupEnv   func(string) (string, bool)
	environ     func() []string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		lookupEnv:   os.LookupEnv,
		environ:     os.Environ,
	}
}

// Load loads configuration using a hierarchy of sources.
// The loading order (from lowest to highest priority):
//  1. Default values
//  2. base.yaml
//  3. <environment>.yaml
//  4. local.yaml (development only)
//  5. Environment variables
func (l *Loader) Load() (*Config, error) {
	l.sources = l.sources[:0]
	cfg := DefaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile(filepath.Join(l.basePath, "base.yaml"), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := filepath.Join(l.basePath, strings.ToLower(string(l.environment))+".yaml")
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", l.environment, err)
	}

	if l.environment == Development {
		if err := l.loadFile(filepath.Join(l.basePath, "local.yaml"), cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	return l.finish(cfg)
}

// LoadFile loads a single explicit file on top of the defaults. The file
// must exist.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.sources = l.sources[:0]
	cfg := DefaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return l.finish(cfg)
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	if err := l.loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")
	cfg.LoadedFrom = append([]string(nil), l.sources...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Files returns the files applied by the last load.
func (l *Loader) Files() []string {
	var files []string
	for _, s := range l.sources {
		if s != "defaults" && s != "environment" {
			files = append(files, s)
		}
	}
	return files
}

func (l *Loader) loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := decodeYAML(file, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	err := yaml.NewDecoder(r).Decode(cfg)
	if err == io.EOF {
		return nil
	}
	return err
}

// loadEnvironmentVariables overlays environment variables on cfg.
func (l *Loader) loadEnvironmentVariables(cfg *Config) error {
	if val, ok := l.lookupEnv(EnvPrefix + "ENVIRONMENT"); ok && val != "" {
		cfg.Environment = Environment(strings.ToLower(val))
	}
	if val, ok := l.lookupEnv(EnvPrefix + "SERVER_HOST"); ok && val != "" {
		cfg.Server.Host = val
	}
	if val, ok := l.lookupEnv(EnvPrefix + "SERVER_PORT"); ok && val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return envFault("SERVER_PORT", val, err)
		}
		cfg.Server.Port = port
	}
	if val, ok := l.lookupEnv(EnvPrefix + "LOG_LEVEL"); ok && val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val, ok := l.lookupEnv(EnvPrefix + "WEB_ENABLED"); ok && val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return envFault("WEB_ENABLED", val, err)
		}
		cfg.Web.Enabled = enabled
	}
	if val, ok := l.lookupEnv(EnvPrefix + "SCAN_ENTITY_PACKAGES"); ok {
		cfg.Scan.EntityPackages = splitList(val)
	}
	if val, ok := l.lookupEnv(EnvPrefix + "SCAN_BASE_PACKAGES"); ok {
		cfg.Scan.BasePackages = splitList(val)
	}
	if val, ok := l.lookupEnv(EnvPrefix + "TRACING_ENDPOINT"); ok && val != "" {
		cfg.Tracing.Endpoint = val
		cfg.Tracing.Enabled = true
	}

	overlay := PropertySet{}
	for _, kv := range l.environ() {
		name, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(name, neo4jEnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, neo4jEnvPrefix))
		overlay.Set(strings.ReplaceAll(key, "_", "-"), value)
	}
	if len(overlay) > 0 {
		cfg.Neo4j = cfg.Neo4j.Merge(overlay)
	}
	return nil
}

func envFault(name, value string, cause error) error {
	return fmt.Errorf("environment variable %s%s: %w", EnvPrefix, name, apperrors.InvalidProperty(strings.ToLower(name), value, cause))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DefaultConfig returns a configuration that runs without any files.
func DefaultConfig(env Environment) *Config {
	if env == "" {
		env = Development
	}
	cfg := &Config{
		Environment: env,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Web: Web{
			Enabled: true,
		},
		Tracing: Tracing{
			ServiceName: "graphboot",
			SampleRate:  0.1,
		},
		Metrics: Metrics{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "graphboot",
		},
		Neo4j: PropertySet{},
	}
	if env == Production {
		cfg.Logging.Format = "json"
	}
	return cfg
}

// EnvironmentFromEnv reads GRAPHBOOT_ENVIRONMENT, defaulting to development.
func EnvironmentFromEnv() Environment {
	if val := os.Getenv(EnvPrefix + "ENVIRONMENT"); val != "" {
		return Environment(strings.ToLower(val))
	}
	return Development
}

// LoadWithLoader loads configuration from the default "config" directory.
func LoadWithLoader() (*Config, error) {
	return NewLoader("config", EnvironmentFromEnv()).Load()
}
