package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
interval: 10
enable_booking: true
login:
  username: "S1234567A"
  password: "hunter2"
pref:
  month: "202405"
  sessions: [2, 3]
captcha:
  login: false
  booking: true
telegram:
  enabled: true
  token: "tg-token"
  chat_id: "42"
discord:
  enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval != 10 || !cfg.EnableBooking {
		t.Errorf("top-level fields wrong: %+v", cfg)
	}
	if cfg.Login.Username != "S1234567A" || cfg.Login.Password != "hunter2" {
		t.Errorf("login fields wrong: %+v", cfg.Login)
	}
	if cfg.Pref.Month != "202405" || len(cfg.Pref.Sessions) != 2 {
		t.Errorf("pref fields wrong: %+v", cfg.Pref)
	}
	if !cfg.Captcha.Booking || cfg.Captcha.Login {
		t.Errorf("captcha flags wrong: %+v", cfg.Captcha)
	}
	if cfg.Telegram.ChatID != "42" {
		t.Errorf("telegram chat_id = %q", cfg.Telegram.ChatID)
	}
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
login:
  username: u
  password: p
pref:
  month: "202405"
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval != 5 {
		t.Errorf("interval default = %d, want 5", cfg.Interval)
	}
	if cfg.PassTimeout != 5 {
		t.Errorf("pass_timeout default = %d, want 5", cfg.PassTimeout)
	}
	if cfg.Captcha.MaxAttempts != 25 {
		t.Errorf("max_attempts default = %d, want 25", cfg.Captcha.MaxAttempts)
	}
	if cfg.EnableBooking {
		t.Error("booking must default to disabled")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BBDC_USERNAME", "env-user")
	t.Setenv("BBDC_PASSWORD", "env-pass")
	t.Setenv("TELEGRAM_TOKEN", "env-token")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Login.Username != "env-user" || cfg.Login.Password != "env-pass" {
		t.Errorf("env credentials not applied: %+v", cfg.Login)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("telegram token = %q", cfg.Telegram.Token)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"missing credentials",
			"pref:\n  month: \"202405\"\n",
			"login.username",
		},
		{
			"missing month",
			"login:\n  username: u\n  password: p\n",
			"pref.month",
		},
		{
			"telegram enabled without chat id",
			"login:\n  username: u\n  password: p\npref:\n  month: \"202405\"\ntelegram:\n  enabled: true\n  token: t\n",
			"chat_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestBearerTokenReplacesCredentials(t *testing.T) {
	t.Setenv("BBDC_BEARER_TOKEN", "captured-token")
	cfg, err := Load(writeConfig(t, "pref:\n  month: \"202405\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BearerToken != "captured-token" {
		t.Errorf("bearer token = %q", cfg.BearerToken)
	}
}
