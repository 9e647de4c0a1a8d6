// Package config implements the kpiboard configuration.
//
// Values come from, in order of precedence:
//  1. Command-line flags
//  2. Environment variables
//  3. A YAML file given with -config (or KPIBOARD_CONFIG)
//  4. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all kpiboard configuration.
type Config struct {
	Listen     string
	GRPCListen string
	ConfigFile string

	// Settings seeded into storage when APIURL is set.
	APIURL          string
	APIKey          string
	RefreshInterval int

	Storage       string
	DataFile      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	Throttle      time.Duration
	Retention     time.Duration
	ChartWidth    int
	ChartHeight   int
	FetchTimeout  time.Duration
	DedupeRefresh bool

	View      string
	LogFormat string
	LogLevel  string
}

// FileConfig mirrors Config for the YAML file. Zero values are ignored.
type FileConfig struct {
	Listen          string `yaml:"listen"`
	GRPCListen      string `yaml:"grpc_listen"`
	APIURL          string `yaml:"api_url"`
	APIKey          string `yaml:"api_key"`
	RefreshInterval int    `yaml:"refresh_interval"`
	Storage         string `yaml:"storage"`
	DataFile        string `yaml:"data_file"`
	Redis           struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Throttle      time.Duration `yaml:"throttle"`
	Retention     time.Duration `yaml:"retention"`
	ChartWidth    int           `yaml:"chart_width"`
	ChartHeight   int           `yaml:"chart_height"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	DedupeRefresh bool          `yaml:"dedupe_refresh"`
	View          string        `yaml:"view"`
	LogFormat     string        `yaml:"log_format"`
	LogLevel      string        `yaml:"log_level"`
}

// envKeys maps flag names to their environment variable.
var envKeys = map[string]string{
	"listen":           "LISTEN",
	"grpc-listen":      "GRPC_LISTEN",
	"api-url":          "API_URL",
	"api-key":          "API_KEY",
	"refresh-interval": "REFRESH_INTERVAL",
	"storage":          "STORAGE",
	"data-file":        "DATA_FILE",
	"redis-addr":       "REDIS_ADDR",
	"redis-password":   "REDIS_PASSWORD",
	"redis-db":         "REDIS_DB",
	"redis-prefix":     "REDIS_PREFIX",
	"throttle":         "THROTTLE",
	"retention":        "RETENTION",
	"chart-width":      "CHART_WIDTH",
	"chart-height":     "CHART_HEIGHT",
	"fetch-timeout":    "FETCH_TIMEOUT",
	"dedupe-refresh":   "DEDUPE_REFRESH",
	"view":             "VIEW",
	"log-format":       "LOG_FORMAT",
	"log-level":        "LOG_LEVEL",
}

// ParseFlags parses command-line flags, environment variables and the
// optional YAML file into a Config.
// Exits with status 1 if the file cannot be read or a value is invalid.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ConfigFile, "config", getEnv("KPIBOARD_CONFIG", ""), "Path to a YAML config file")

	// Servers
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8090"), "HTTP listen address")
	flag.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", ":50052"), "gRPC health listen address (empty disables)")

	// Dashboard settings
	flag.StringVar(&cfg.APIURL, "api-url", getEnv("API_URL", ""), "Metrics API URL (overrides stored settings)")
	flag.StringVar(&cfg.APIKey, "api-key", getEnv("API_KEY", ""), "Metrics API bearer token")
	flag.IntVar(&cfg.RefreshInterval, "refresh-interval", getEnvInt("REFRESH_INTERVAL", 5), "Auto refresh interval in minutes (negative disables)")

	// Storage
	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "file"), "Storage backend: memory, file or redis")
	flag.StringVar(&cfg.DataFile, "data-file", getEnv("DATA_FILE", defaultDataFile()), "State file for the file backend")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.StringVar(&cfg.RedisPrefix, "redis-prefix", getEnv("REDIS_PREFIX", "kpiboard:"), "Redis key prefix")

	// Timing and chart
	flag.DurationVar(&cfg.Throttle, "throttle", getEnvDuration("THROTTLE", 10*time.Second), "Serve cached responses younger than this")
	flag.DurationVar(&cfg.Retention, "retention", getEnvDuration("RETENTION", 24*time.Hour), "MRR history retention window")
	flag.IntVar(&cfg.ChartWidth, "chart-width", getEnvInt("CHART_WIDTH", 12), "Trend chart columns")
	flag.IntVar(&cfg.ChartHeight, "chart-height", getEnvInt("CHART_HEIGHT", 8), "Trend chart rows")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", getEnvDuration("FETCH_TIMEOUT", 10*time.Second), "Metrics API request timeout")
	flag.BoolVar(&cfg.DedupeRefresh, "dedupe-refresh", getEnvBool("DEDUPE_REFRESH", false), "Collapse overlapping refreshes into one")

	// Output
	flag.StringVar(&cfg.View, "view", getEnv("VIEW", "text"), "Terminal view: text or none")
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if cfg.ConfigFile != "" {
		fc, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		cfg.applyFile(fc, explicit)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// applyFile copies non-zero file values for keys that were neither set by
// flag nor by environment variable.
func (c *Config) applyFile(fc *FileConfig, explicit map[string]bool) {
	use := func(name string) bool {
		return !explicit[name] && os.Getenv(envKeys[name]) == ""
	}
	setString := func(name string, dst *string, v string) {
		if v != "" && use(name) {
			*dst = v
		}
	}
	setInt := func(name string, dst *int, v int) {
		if v != 0 && use(name) {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration, v time.Duration) {
		if v != 0 && use(name) {
			*dst = v
		}
	}

	setString("listen", &c.Listen, fc.Listen)
	setString("grpc-listen", &c.GRPCListen, fc.GRPCListen)
	setString("api-url", &c.APIURL, fc.APIURL)
	setString("api-key", &c.APIKey, fc.APIKey)
	setInt("refresh-interval", &c.RefreshInterval, fc.RefreshInterval)
	setString("storage", &c.Storage, fc.Storage)
	setString("data-file", &c.DataFile, fc.DataFile)
	setString("redis-addr", &c.RedisAddr, fc.Redis.Addr)
	setString("redis-password", &c.RedisPassword, fc.Redis.Password)
	setInt("redis-db", &c.RedisDB, fc.Redis.DB)
	setString("redis-prefix", &c.RedisPrefix, fc.Redis.Prefix)
	setDuration("throttle", &c.Throttle, fc.Throttle)
	setDuration("retention", &c.Retention, fc.Retention)
	setInt("chart-width", &c.ChartWidth, fc.ChartWidth)
	setInt("chart-height", &c.ChartHeight, fc.ChartHeight)
	setDuration("fetch-timeout", &c.FetchTimeout, fc.FetchTimeout)
	if fc.DedupeRefresh && use("dedupe-refresh") {
		c.DedupeRefresh = true
	}
	setString("view", &c.View, fc.View)
	setString("log-format", &c.LogFormat, fc.LogFormat)
	setString("log-level", &c.LogLevel, fc.LogLevel)
}

// Validate checks enumerated and positive values.
func (c *Config) Validate() error {
	switch c.Storage {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("invalid storage %q (memory, file or redis)", c.Storage)
	}
	switch c.View {
	case "text", "none":
	default:
		return fmt.Errorf("invalid view %q (text or none)", c.View)
	}
	if c.Storage == "file" && c.DataFile == "" {
		return fmt.Errorf("-data-file is required for file storage")
	}
	if c.Throttle < 0 {
		return fmt.Errorf("-throttle must not be negative")
	}
	if c.Retention < time.Hour {
		return fmt.Errorf("-retention must be at least 1h")
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("-chart-width and -chart-height must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("-fetch-timeout must be positive")
	}
	return nil
}

func defaultDataFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "kpiboard.json"
	}
	return filepath.Join(dir, "kpiboard", "state.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
