// Package config provides YAML-based configuration loading for Flotilla.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Flotilla configuration, loaded from config.yaml.
type Config struct {
	MySQL         MySQLConfig     `yaml:"mysql"`
	Server        ServerConfig    `yaml:"server"`
	Reconcile     ReconcileConfig `yaml:"reconcile"`
	ExpectedTires map[string]int  `yaml:"expected_tires"`
	Alerts        AlertsConfig    `yaml:"alerts"`
}

// MySQLConfig holds connection settings for the MySQL server.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ReconcileConfig controls the periodic availability sweep.
type ReconcileConfig struct {
	// Schedule is a 5-field cron expression (minute, hour, dom, month, dow).
	Schedule string `yaml:"schedule"`
}

// AlertsConfig configures optional block-alert delivery.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials for posting alerts.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord bot credentials for posting alerts.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.MySQL.Host == "" {
		c.MySQL.Host = "127.0.0.1"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.Database == "" {
		c.MySQL.Database = "flotilla"
	}
	if c.MySQL.User == "" {
		c.MySQL.User = "root"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Reconcile.Schedule == "" {
		c.Reconcile.Schedule = "0 3 * * *"
	}
	// Configured counts override the defaults per type; unlisted types keep
	// the built-in table.
	normalized := make(map[string]int, len(c.ExpectedTires))
	for tipo, n := range c.ExpectedTires {
		normalized[strings.ToLower(strings.TrimSpace(tipo))] = n
	}
	c.ExpectedTires = normalized
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.MySQL.Port < 0 || c.MySQL.Port > 65535 {
		errs = append(errs, "mysql.port must be a valid port")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be a valid port")
	}
	for tipo, n := range c.ExpectedTires {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("expected_tires[%s] must not be negative", tipo))
		}
	}
	if c.Alerts.Slack.BotToken != "" && c.Alerts.Slack.Channel == "" {
		errs = append(errs, "alerts.slack.channel is required when a bot token is set")
	}
	if c.Alerts.Discord.BotToken != "" && c.Alerts.Discord.ChannelID == "" {
		errs = append(errs, "alerts.discord.channel_id is required when a bot token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
