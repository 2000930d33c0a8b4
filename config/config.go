package config

import (
	"strings"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "VOICEMASTER"

type Config struct {
	Token     string
	BotStatus string
	Database  DatabaseConfig
	Log       LogConfig
	Voice     VoiceConfig
}

type DatabaseConfig struct {
	Driver   string
	DSN      string
	LogLevel string
}

type LogConfig struct {
	Level       string
	Development bool
}

type VoiceConfig struct {
	// PromptTimeout bounds every interactive wait (setup wizard, renames).
	PromptTimeout       time.Duration
	MaxLocks            int
	DefaultNameTemplate string
	// SweepInterval enables the periodic stale channel sweep when positive.
	SweepInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("token", "")
	v.SetDefault("bot_status", "/voice help")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "voicemaster.db")
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("voice.prompt_timeout", 60*time.Second)
	v.SetDefault("voice.max_locks", 10000)
	v.SetDefault("voice.default_name_template", "{{.DisplayName}}'s Channel")
	v.SetDefault("voice.sweep_interval", time.Duration(0))
}

// New returns a viper instance reading config.yaml from the given paths
// (default "." and /etc/voicemaster) with VOICEMASTER_ env overrides.
func New(paths ...string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "/etc/voicemaster"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if one exists and returns the validated config.
// A missing file is not an error, env and defaults still apply.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "unable to read config file")
		}
	}
	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Token:     v.GetString("token"),
		BotStatus: v.GetString("bot_status"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("database.driver")),
			DSN:      v.GetString("database.dsn"),
			LogLevel: strings.ToLower(v.GetString("database.log_level")),
		},
		Log: LogConfig{
			Level:       strings.ToLower(v.GetString("log.level")),
			Development: v.GetBool("log.development"),
		},
		Voice: VoiceConfig{
			PromptTimeout:       v.GetDuration("voice.prompt_timeout"),
			MaxLocks:            v.GetInt("voice.max_locks"),
			DefaultNameTemplate: v.GetString("voice.default_name_template"),
			SweepInterval:       v.GetDuration("voice.sweep_interval"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("token is required (set it in config.yaml or VOICEMASTER_TOKEN)")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Voice.PromptTimeout <= 0 {
		return errors.Errorf("voice.prompt_timeout must be positive, got %s", c.Voice.PromptTimeout)
	}
	if c.Voice.MaxLocks <= 0 {
		return errors.Errorf("voice.max_locks must be positive, got %d", c.Voice.MaxLocks)
	}
	if c.Voice.SweepInterval < 0 {
		return errors.Errorf("voice.sweep_interval must not be negative, got %s", c.Voice.SweepInterval)
	}
	if _, err := template.New("channel_name").Parse(c.Voice.DefaultNameTemplate); err != nil {
		return errors.Wrap(err, "voice.default_name_template is invalid")
	}
	return nil
}

// Watch calls onChange with the re-read config every time the config file
// changes. Invalid edits are reported through onError and otherwise ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg := FromViper(v)
		if err := cfg.Validate(); err != nil {
			onError(errors.Wrapf(err, "ignoring invalid change to %s", e.Name))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
