package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quoteline/beacon/pkg/constants"
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Catalog source configuration
	BaseURL     string
	StorePath   string
	TTL         time.Duration
	Concurrency int
	MaxRetries  int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables
//  3. .env files
//  4. Config file (~/.beacon.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files before Viper env binding
	loadEnvFiles()

	viper.SetEnvPrefix("beacon")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".beacon")
		}
	}

	// Missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		BaseURL:     viper.GetString("base_url"),
		StorePath:   viper.GetString("store_path"),
		TTL:         viper.GetDuration("ttl"),
		Concurrency: viper.GetInt("concurrency"),
		MaxRetries:  viper.GetInt("max_retries"),

		LogLevel:  viper.GetString("log_level"),
		LogFormat: getEnvOrDefault("BEACON_LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("BEACON_LOG_OUTPUT", "stderr"),
	}

	if config.StorePath == "" {
		config.StorePath = constants.DefaultStorePath
	}
	if config.TTL == 0 {
		config.TTL = constants.DefaultCacheTTL
	}
	if config.Concurrency == 0 {
		config.Concurrency = constants.DefaultConcurrency
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = constants.MaxRetries
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}
	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if
// not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
