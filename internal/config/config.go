package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	redisAddrEnv        = "SITEWATCH_REDIS_ADDR"
	badgerPathEnv       = "SITEWATCH_BADGER_PATH"
	classifierKeyEnv    = "SITEWATCH_AI_API_KEY"
	classifierModelEnv  = "SITEWATCH_AI_MODEL"
	maxContentLengthEnv = "MAX_CONTENT_LENGTH"
)

// Config holds all settings consumed across the application.
type Config struct {
	Redis      RedisConfig      `yaml:"redis"`
	Badger     BadgerConfig     `yaml:"badger"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// RedisConfig describes the metadata store connection.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// BadgerConfig describes where heavy summary content lives on disk.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// FetcherConfig controls the outbound HTTP policy for page fetches.
type FetcherConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"maxRedirects"`
	UserAgent    string        `yaml:"userAgent"`
}

// ExtractorConfig bounds the extracted content.
type ExtractorConfig struct {
	MaxContentLength int `yaml:"maxContentLength"`
	MinContentLength int `yaml:"minContentLength"`
}

// ClassifierConfig defines how to contact the summarization API.
type ClassifierConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"apiKey"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"maxTokens"`
}

// MonitorConfig drives the scheduler loop.
type MonitorConfig struct {
	TickInterval time.Duration `yaml:"tickInterval"`
	TickBudget   time.Duration `yaml:"tickBudget"`
	Concurrency  int           `yaml:"concurrency"`
}

// ServerConfig describes the operational HTTP surface.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration from path (if non-empty) on top of defaults
// and applies environment overrides. An unreadable or unparseable file is
// reported through the error while the returned config stays usable
// (defaults plus env), so callers decide whether to warn or abort.
func Load(path string) (Config, error) {
	cfg := Default()

	var loadErr error
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("read config file: %w", err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				loadErr = fmt.Errorf("parse config file: %w", err)
			} else {
				cfg = merge(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, loadErr
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(badgerPathEnv); v != "" {
		c.Badger.Path = v
	}
	if v := os.Getenv(classifierKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv(classifierModelEnv); v != "" {
		c.Classifier.Model = v
	}
	if v := os.Getenv(maxContentLengthEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Extractor.MaxContentLength = n
		}
	}
}

func merge(base, override Config) Config {
	if override.Redis.Addr != "" {
		base.Redis = override.Redis
	}
	if override.Badger.Path != "" {
		base.Badger = override.Badger
	}

	if override.Fetcher.Timeout > 0 {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.MaxRedirects > 0 {
		base.Fetcher.MaxRedirects = override.Fetcher.MaxRedirects
	}
	if override.Fetcher.UserAgent != "" {
		base.Fetcher.UserAgent = override.Fetcher.UserAgent
	}

	if override.Extractor.MaxContentLength > 0 {
		base.Extractor.MaxContentLength = override.Extractor.MaxContentLength
	}
	if override.Extractor.MinContentLength > 0 {
		base.Extractor.MinContentLength = override.Extractor.MinContentLength
	}

	if override.Classifier.Endpoint != "" {
		base.Classifier.Endpoint = override.Classifier.Endpoint
	}
	if override.Classifier.Model != "" {
		base.Classifier.Model = override.Classifier.Model
	}
	if override.Classifier.APIKey != "" {
		base.Classifier.APIKey = override.Classifier.APIKey
	}
	if override.Classifier.Timeout > 0 {
		base.Classifier.Timeout = override.Classifier.Timeout
	}
	if override.Classifier.MaxTokens > 0 {
		base.Classifier.MaxTokens = override.Classifier.MaxTokens
	}

	if override.Monitor.TickInterval > 0 {
		base.Monitor.TickInterval = override.Monitor.TickInterval
	}
	if override.Monitor.TickBudget > 0 {
		base.Monitor.TickBudget = override.Monitor.TickBudget
	}
	if override.Monitor.Concurrency > 0 {
		base.Monitor.Concurrency = override.Monitor.Concurrency
	}

	if override.Server.Port != "" {
		base.Server.Port = override.Server.Port
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Badger: BadgerConfig{Path: "./badger-data"},
		Fetcher: FetcherConfig{
			Timeout:      10 * time.Second,
			MaxRedirects: 5,
			UserAgent:    "Mozilla/5.0 (compatible; SiteWatch/1.0; +https://sitewatch.dev/bot)",
		},
		Extractor: ExtractorConfig{
			MaxContentLength: 50000,
			MinContentLength: 100,
		},
		Classifier: ClassifierConfig{
			Endpoint:  "https://api.aimlapi.com/v1/chat/completions",
			Model:     "mistralai/Mistral-7B-Instruct-v0.2",
			Timeout:   30 * time.Second,
			MaxTokens: 1000,
		},
		Monitor: MonitorConfig{
			TickInterval: 5 * time.Minute,
			TickBudget:   4 * time.Minute,
			Concurrency:  5,
		},
		Server:  ServerConfig{Port: "8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}
