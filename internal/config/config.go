package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the kbgate gateway configuration.
type Config struct {
	HTTP           HTTPConfig            `yaml:"http"`
	Auth           AuthConfig            `yaml:"auth"`
	AWS            AWSConfig             `yaml:"aws"`
	Logging        LoggingConfig         `yaml:"logging"`
	KnowledgeBases []KnowledgeBaseConfig `yaml:"knowledge_bases"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AWSConfig holds settings for the knowledge base client.
type AWSConfig struct {
	Region            string `yaml:"region"`
	Profile           string `yaml:"profile"`
	EndpointURL       string `yaml:"endpoint_url"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
	ReadTimeoutSec    int    `yaml:"read_timeout_sec"`
}

// KnowledgeBaseConfig describes one knowledge base exposed by the gateway.
// RetrievalConfiguration carries the wire-shaped retrieval configuration as-is;
// it is parsed and validated at startup.
type KnowledgeBaseConfig struct {
	Name                   string         `yaml:"name"`
	ID                     string         `yaml:"id"`
	MinScoreConfidence     float64        `yaml:"min_score_confidence"`
	SkipInvalidResults     bool           `yaml:"skip_invalid_results"`
	RetrievalConfiguration map[string]any `yaml:"retrieval_configuration"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Retrieval calls can be slow; the write timeout must outlast them.
		c.HTTP.WriteTimeoutSec = 150
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.AWS.ConnectTimeoutSec <= 0 {
		c.AWS.ConnectTimeoutSec = 120
	}
	if c.AWS.ReadTimeoutSec <= 0 {
		c.AWS.ReadTimeoutSec = 120
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.KnowledgeBases) == 0 {
		return fmt.Errorf("knowledge_bases is required")
	}
	seen := make(map[string]struct{}, len(c.KnowledgeBases))
	for i, kb := range c.KnowledgeBases {
		if kb.Name == "" {
			return fmt.Errorf("knowledge_bases[%d].name is required", i)
		}
		if kb.ID == "" {
			return fmt.Errorf("knowledge_bases[%d].id is required", i)
		}
		if _, dup := seen[kb.Name]; dup {
			return fmt.Errorf("knowledge_bases[%d].name %q is duplicated", i, kb.Name)
		}
		seen[kb.Name] = struct{}{}
		if kb.MinScoreConfidence < 0 || kb.MinScoreConfidence > 1 {
			return fmt.Errorf(
				"knowledge_bases[%d].min_score_confidence must be between 0 and 1, got %v",
				i, kb.MinScoreConfidence,
			)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
