package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/gatelink/pkg/constants"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Gateway connection
	GatewayURL      string
	Token           string
	AuthScheme      string
	ApplicationName string
	PrivatePolling  bool
	KeepAlivePeriod time.Duration
	ReadyTimeout    time.Duration
	QueueCapacity   int
	RetryInterval   time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.gatelink.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	v := viper.New()
	return loadConfig(v, "")
}

// loadConfig reads configuration through v. A non-empty file replaces the
// config file search.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v.SetEnvPrefix("gatelink")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("auth", "bearer")
	v.SetDefault("application", constants.DefaultApplicationName)
	v.SetDefault("ready_timeout", constants.DefaultReadyTimeout)
	v.SetDefault("queue_capacity", constants.DefaultQueueCapacity)
	v.SetDefault("retry_interval", constants.DefaultRetryInterval)

	if file != "" {
		v.SetConfigFile(file)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".gatelink")
	}

	// A missing default file is fine, an explicit one must be readable.
	if err := v.ReadInConfig(); err != nil && file != "" {
		return nil, err
	}

	return &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		GatewayURL:      v.GetString("url"),
		Token:           v.GetString("token"),
		AuthScheme:      v.GetString("auth"),
		ApplicationName: v.GetString("application"),
		PrivatePolling:  v.GetBool("private_polling"),
		KeepAlivePeriod: v.GetDuration("keepalive_period"),
		ReadyTimeout:    v.GetDuration("ready_timeout"),
		QueueCapacity:   v.GetInt("queue_capacity"),
		RetryInterval:   v.GetDuration("retry_interval"),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags so that
// flag values take precedence over config file and env vars.
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
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		// godotenv.Load never overrides variables already set, so the
		// first file to set a variable wins.
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
