package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "RADUTY"
	defaultHTTPAddress    = "0.0.0.0:5001"
	defaultDatabasePath   = "raduty.db"
	defaultLogLevel       = "info"
	defaultAllowOrigins   = "*"
	defaultAPIBaseURL     = "http://localhost:5001/api"
	defaultAPITimeoutSecs = 10
	defaultHeartbeatSecs  = 25
)

// AppConfig captures runtime configuration for the API server and its clients.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	SeedDatabase      bool
	LogLevel          string
	AllowOrigins      []string
	HeartbeatInterval time.Duration
	APIBaseURL        string
	APITimeout        time.Duration
	ReloadOnFilter    bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.seed", true)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cors.allow_origins", defaultAllowOrigins)
	configViper.SetDefault("stream.heartbeat_seconds", defaultHeartbeatSecs)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("api.timeout_seconds", defaultAPITimeoutSecs)
	configViper.SetDefault("calendar.reload_on_filter", true)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		SeedDatabase:      configViper.GetBool("database.seed"),
		LogLevel:          configViper.GetString("log.level"),
		AllowOrigins:      splitList(configViper.GetString("cors.allow_origins")),
		HeartbeatInterval: time.Duration(configViper.GetInt("stream.heartbeat_seconds")) * time.Second,
		APIBaseURL:        configViper.GetString("api.base_url"),
		APITimeout:        time.Duration(configViper.GetInt("api.timeout_seconds")) * time.Second,
		ReloadOnFilter:    configViper.GetBool("calendar.reload_on_filter"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("stream.heartbeat_seconds must be positive")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute url")
	}
	return nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
