package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors config.yaml. Secrets can also come from the environment so
// the file can be committed without them.
type Config struct {
	// Interval between scheduled passes, in minutes.
	Interval int `yaml:"interval"`

	// EnableBooking false runs in notify-only mode.
	EnableBooking bool `yaml:"enable_booking"`

	// PassTimeout is the wall-clock budget of one pass, in minutes.
	PassTimeout int `yaml:"pass_timeout"`

	// HistoryDB enables the SQLite pass/notification history when set.
	HistoryDB string `yaml:"history_db"`

	Login struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"login"`

	Pref struct {
		// Month is the released-slot month to query, e.g. "202405".
		Month    string `yaml:"month"`
		Sessions []int  `yaml:"sessions"`
	} `yaml:"pref"`

	Captcha struct {
		// Login/Booking true means a human solves that captcha.
		Login       bool `yaml:"login"`
		Booking     bool `yaml:"booking"`
		MaxAttempts int  `yaml:"max_attempts"`
	} `yaml:"captcha"`

	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Discord struct {
		Enabled bool   `yaml:"enabled"`
		Webhook string `yaml:"webhook"`
	} `yaml:"discord"`

	// BearerToken seeds the session with a token captured from a browser;
	// env only (BBDC_BEARER_TOKEN).
	BearerToken string `yaml:"-"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := getenv("BBDC_USERNAME"); v != "" {
		cfg.Login.Username = v
	}
	if v := getenv("BBDC_PASSWORD"); v != "" {
		cfg.Login.Password = v
	}
	if v := getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := getenv("DISCORD_WEBHOOK"); v != "" {
		cfg.Discord.Webhook = v
	}
	cfg.BearerToken = getenv("BBDC_BEARER_TOKEN")

	if cfg.Interval < 1 {
		cfg.Interval = 5
	}
	if cfg.PassTimeout < 1 {
		cfg.PassTimeout = 5
	}
	if cfg.Captcha.MaxAttempts < 1 {
		cfg.Captcha.MaxAttempts = 25
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BearerToken == "" && (c.Login.Username == "" || c.Login.Password == "") {
		return fmt.Errorf("login.username and login.password are required (or BBDC_BEARER_TOKEN)")
	}
	if c.Pref.Month == "" {
		return fmt.Errorf("pref.month is required, e.g. \"202405\"")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if c.Discord.Enabled && c.Discord.Webhook == "" {
		return fmt.Errorf("discord.webhook is required when discord is enabled")
	}
	return nil
}

func getenv(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}
