package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	Debug           bool    `yaml:"debug"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// DispatchConfig configures the push fanout channels. An empty address or
// key disables just that channel; the pull API is unaffected.
type DispatchConfig struct {
	GatewayAPIKey     string        `yaml:"gateway_api_key"`
	GatewayURL        string        `yaml:"gateway_url"`
	MQTTBrokerAddress string        `yaml:"mqtt_broker_address"`
	RelaySocketURI    string        `yaml:"relay_socket_uri"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	Timeout           time.Duration `yaml:"-"` // Ignored by YAML parser
	WebPush           WebPushConfig `yaml:"webpush"`
}

// WebPushConfig holds the VAPID keys for the web push channel.
type WebPushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Load reads the configuration from the given path and applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnvOverrides lets deployment environments override the sensitive
// settings without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PUSHRELAY_DB"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PUSHRELAY_GATEWAY_API_KEY"); v != "" {
		c.Dispatch.GatewayAPIKey = v
	}
	if v := os.Getenv("MQTT_ADDRESS"); v != "" {
		c.Dispatch.MQTTBrokerAddress = v
	}
	if v := os.Getenv("PUSHRELAY_RELAY_URI"); v != "" {
		c.Dispatch.RelaySocketURI = v
	}
	if v := os.Getenv("PUSHRELAY_DEBUG"); v == "1" || v == "true" {
		c.Server.Debug = true
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 300
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "pushrelay.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetimeMinutes <= 0 {
		c.Database.ConnMaxLifetimeMinutes = 30
	}
	if c.Dispatch.GatewayURL == "" {
		c.Dispatch.GatewayURL = "https://fcm.googleapis.com/fcm/send"
	}
	if c.Dispatch.TimeoutSeconds <= 0 {
		c.Dispatch.TimeoutSeconds = 5
	}
	c.Dispatch.Timeout = time.Duration(c.Dispatch.TimeoutSeconds) * time.Second
	if c.Dispatch.WebPush.TTL <= 0 {
		c.Dispatch.WebPush.TTL = 3600
	}
}
