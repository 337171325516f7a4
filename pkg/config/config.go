package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultURLFile         = "product_urls.txt"
	DefaultSessionFile     = "auth_state.json"
	DefaultHistoryDB       = "stockbot.db"
	DefaultRefreshSeconds  = 15
	DefaultAffordanceText  = "Add to Cart"
	DefaultAffordanceQuery = "button, a, [role='button'], input[type='submit'], input[type='button']"
	DefaultSubject         = "ToysRUs Stock Alert"
)

// BrowserConfig holds browser launch settings.
type BrowserConfig struct {
	Headless bool `yaml:"headless"`
	Stealth  bool `yaml:"stealth"`
	// TabMemoryMB is the rough per-tab memory estimate used for the startup budget check.
	TabMemoryMB int `yaml:"tab_memory_mb"`
}

// SiteConfig holds the retail site the operator is logged into.
type SiteConfig struct {
	HomeURL  string `yaml:"home_url"`
	LoginURL string `yaml:"login_url"`
}

// AffordanceConfig describes the element whose presence means "in stock".
type AffordanceConfig struct {
	Selector      string `yaml:"selector"`
	Text          string `yaml:"text"`
	PriceSelector string `yaml:"price_selector"`
}

// MonitorConfig holds file locations and the polling interval.
type MonitorConfig struct {
	URLFile        string `yaml:"url_file"`
	SessionFile    string `yaml:"session_file"`
	RefreshSeconds int    `yaml:"refresh_seconds"`
}

// TelegramConfig enables the optional Telegram channel.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// WebhookConfig enables the optional JSON webhook channel.
type WebhookConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NotifierConfig holds every notification channel.
type NotifierConfig struct {
	Sender   string         `yaml:"sender"`
	Receiver string         `yaml:"receiver"`
	Subject  string         `yaml:"subject"`
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// HistoryConfig points at the run history database. An empty path disables it.
type HistoryConfig struct {
	DBPath   string `yaml:"db_path"`
	Disabled bool   `yaml:"disabled"`
}

// ServerConfig is read by cmd/server only.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Browser    BrowserConfig    `yaml:"browser"`
	Site       SiteConfig       `yaml:"site"`
	Affordance AffordanceConfig `yaml:"affordance"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	History    HistoryConfig    `yaml:"history"`
	Server     ServerConfig     `yaml:"server"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{Browser: BrowserConfig{Stealth: true}}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads the YAML file at filepath. A missing file is not an error:
// the tool is usable with flags alone, so defaults are returned instead.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{Browser: BrowserConfig{Stealth: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Browser.TabMemoryMB <= 0 {
		cfg.Browser.TabMemoryMB = 150
	}
	if cfg.Site.HomeURL == "" {
		cfg.Site.HomeURL = "https://www.toysrus.com.my/"
	}
	if cfg.Site.LoginURL == "" {
		cfg.Site.LoginURL = "https://www.toysrus.com.my/login/"
	}
	if cfg.Affordance.Selector == "" {
		cfg.Affordance.Selector = DefaultAffordanceQuery
	}
	if cfg.Affordance.Text == "" {
		cfg.Affordance.Text = DefaultAffordanceText
	}
	if cfg.Affordance.PriceSelector == "" {
		cfg.Affordance.PriceSelector = ".price .value, [itemprop='price'], .product-price"
	}
	if cfg.Monitor.URLFile == "" {
		cfg.Monitor.URLFile = DefaultURLFile
	}
	if cfg.Monitor.SessionFile == "" {
		cfg.Monitor.SessionFile = DefaultSessionFile
	}
	if cfg.Monitor.RefreshSeconds <= 0 {
		cfg.Monitor.RefreshSeconds = DefaultRefreshSeconds
	}
	if cfg.Notifier.Subject == "" {
		cfg.Notifier.Subject = DefaultSubject
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = DefaultHistoryDB
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

// ApplyEnv overrides secrets from the environment (a .env file is loaded by main).
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STOCKBOT_TELEGRAM_TOKEN"); v != "" {
		c.Notifier.Telegram.Token = v
	}
	if v := os.Getenv("STOCKBOT_WEBHOOK_PASSWORD"); v != "" {
		c.Notifier.Webhook.Password = v
	}
}

// RefreshInterval is the fixed sleep between sweeps.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Monitor.RefreshSeconds) * time.Second
}

// Validate checks the fields the monitor cannot run without.
func (c *Config) Validate() error {
	if c.Notifier.Sender == "" {
		return errors.New("sender email is required")
	}
	if c.Notifier.Receiver == "" {
		return errors.New("receiver email is required")
	}
	if _, err := mail.ParseAddress(c.Notifier.Sender); err != nil {
		return fmt.Errorf("invalid sender %q: %w", c.Notifier.Sender, err)
	}
	if _, err := mail.ParseAddress(c.Notifier.Receiver); err != nil {
		return fmt.Errorf("invalid receiver %q: %w", c.Notifier.Receiver, err)
	}
	if c.Monitor.RefreshSeconds <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %d", c.Monitor.RefreshSeconds)
	}
	return nil
}
