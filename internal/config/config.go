package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNoTokens   = errors.New("DISCORD_TOKENS is not set")
	ErrNoProvider = errors.New("no speech provider configured (set VOICETEXT_API_KEY, OPENAI_API_KEY or CLIP_BASE_URL)")
	ErrBadVoice   = errors.New("DEFAULT_VOICE must look like category:name")
)

type Config struct {
	DiscordTokens []string `env:"DISCORD_TOKENS" envSeparator:","`

	StoragePath     string `env:"STORAGE_PATH" envDefault:"save.json"`
	ServerConfigDir string `env:"SERVER_CONFIG_DIR" envDefault:"server_config"`

	AdminRoles      []string `env:"ADMIN_ROLES" envSeparator:","`
	NeedAdminGuilds []string `env:"NEED_ADMIN_GUILDS" envSeparator:","`

	VoiceTextAPIKey string `env:"VOICETEXT_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	ClipBaseURL     string `env:"CLIP_BASE_URL"`
	DefaultVoice    string `env:"DEFAULT_VOICE" envDefault:"voicetext:hikari"`

	ReconnectDelay   time.Duration `env:"RECONNECT_DELAY" envDefault:"10s"`
	FlushInterval    time.Duration `env:"FLUSH_INTERVAL" envDefault:"30s"`
	PresenceInterval time.Duration `env:"PRESENCE_INTERVAL" envDefault:"30s"`

	StatusAddr string `env:"STATUS_ADDR"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	Version string `env:"APP_VERSION" envDefault:"dev"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.DiscordTokens = compact(cfg.DiscordTokens)
	cfg.AdminRoles = compact(cfg.AdminRoles)
	cfg.NeedAdminGuilds = compact(cfg.NeedAdminGuilds)
	return &cfg, nil
}

// New loads and validates the configuration, exiting the process when it is
// unusable. Nothing connects before this returns.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] invalid configuration: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.DiscordTokens) == 0 {
		errs = append(errs, ErrNoTokens)
	}
	if c.VoiceTextAPIKey == "" && c.OpenAIAPIKey == "" && c.ClipBaseURL == "" {
		errs = append(errs, ErrNoProvider)
	}
	if category, name, ok := strings.Cut(c.DefaultVoice, ":"); !ok || category == "" || name == "" {
		errs = append(errs, ErrBadVoice)
	}
	if c.ReconnectDelay < 0 || c.FlushInterval <= 0 || c.PresenceInterval <= 0 {
		errs = append(errs, errors.New("intervals must be positive"))
	}
	return errors.Join(errs...)
}

// IsNeedAdminGuild reports whether management commands in guildID are
// restricted to administrators.
func (c *Config) IsNeedAdminGuild(guildID string) bool {
	for _, id := range c.NeedAdminGuilds {
		if id == guildID {
			return true
		}
	}
	return false
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
