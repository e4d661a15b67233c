// Package autocorrect wires the correction pipeline together: on a locator
// wait timeout it asks the AI service for a replacement, retries resolution
// against the live page, records the attempt in the ledger, and optionally
// patches the source files that reference the stale locator.
package autocorrect

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MartyZhou/selenium-selector-autocorrect/importgraph"
)

// Config is the top-level pipeline configuration. Every field has a default;
// FromEnv fills it from the environment, LoadConfigFile from YAML.
type Config struct {
	// AIBaseURL is the base URL of the AI + workspace service.
	AIBaseURL string `yaml:"ai_base_url"`

	// AutoUpdate enables source patching on successful corrections.
	AutoUpdate bool `yaml:"auto_update"`

	// ImportPattern is the regex matching import statements in test files.
	ImportPattern string `yaml:"import_pattern"`

	// ImportKeywords mark imports worth following for page/step modules.
	ImportKeywords []string `yaml:"import_keywords"`

	// SearchFilePattern is the narrow workspace search glob, widened to all
	// .py files when it yields nothing.
	SearchFilePattern string `yaml:"search_file_pattern"`

	// ResolveTimeout bounds the retry of a suggested locator.
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`

	// HistoryDB, when set, archives corrections to this SQLite file.
	HistoryDB string `yaml:"history_db"`

	// Logger for the whole pipeline.
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.AIBaseURL == "" {
		c.AIBaseURL = "http://localhost:8765"
	}
	if c.ImportPattern == "" {
		c.ImportPattern = importgraph.DefaultImportPattern
	}
	if len(c.ImportKeywords) == 0 {
		c.ImportKeywords = importgraph.DefaultImportKeywords
	}
	if c.SearchFilePattern == "" {
		c.SearchFilePattern = importgraph.DefaultSearchPattern
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// FromEnv builds a Config from the environment.
func FromEnv() Config {
	cfg := Config{
		AIBaseURL:         os.Getenv("LOCAL_AI_API_URL"),
		AutoUpdate:        envBool("SELENIUM_AUTO_UPDATE_TESTS"),
		ImportPattern:     os.Getenv("SELENIUM_IMPORT_PATTERN"),
		SearchFilePattern: os.Getenv("SELENIUM_WORKSPACE_SEARCH_FILE_PATTERN"),
		HistoryDB:         os.Getenv("SELENIUM_CORRECTIONS_DB"),
	}
	if kw := os.Getenv("SELENIUM_IMPORT_KEYWORDS"); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.ImportKeywords = append(cfg.ImportKeywords, k)
			}
		}
	}
	cfg.defaults()
	return cfg
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("autocorrect: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("autocorrect: parse config: %w", err)
	}
	cfg.defaults()
	return &cfg, nil
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
