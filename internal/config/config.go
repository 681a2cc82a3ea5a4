package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/spf13/viper"
)

// State backends.
const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	DiscordBotToken string `mapstructure:"DISCORD_BOT_TOKEN"`

	GuildID         snowflake.ID `mapstructure:"-"`
	SourceChannelID snowflake.ID `mapstructure:"-"`
	DestChannelID   snowflake.ID `mapstructure:"-"`
	NotifyRoleID    snowflake.ID `mapstructure:"-"`

	ScanInterval        time.Duration `mapstructure:"SCAN_INTERVAL"`
	AttachmentSizeLimit int           `mapstructure:"ATTACHMENT_SIZE_LIMIT"`
	ForwardAttachments  bool          `mapstructure:"FORWARD_ATTACHMENTS"`

	StateBackend string `mapstructure:"STATE_BACKEND"`
	BadgerDBPath string `mapstructure:"BADGERDB_PATH"`
	StateFile    string `mapstructure:"STATE_FILE"`

	Port        int    `mapstructure:"PORT"`
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
}

// idKeys maps each snowflake setting to its field. IDs are read as strings and
// parsed with snowflake.Parse so YAML and env sources behave the same.
var idKeys = map[string]func(*Config) *snowflake.ID{
	"GUILD_ID":          func(c *Config) *snowflake.ID { return &c.GuildID },
	"SOURCE_CHANNEL_ID": func(c *Config) *snowflake.ID { return &c.SourceChannelID },
	"DEST_CHANNEL_ID":   func(c *Config) *snowflake.ID { return &c.DestChannelID },
	"NOTIFY_ROLE_ID":    func(c *Config) *snowflake.ID { return &c.NotifyRoleID },
}

// New returns a viper instance with defaults set and environment binding enabled.
func New(path string) *viper.Viper {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SCAN_INTERVAL", 10*time.Minute)
	v.SetDefault("ATTACHMENT_SIZE_LIMIT", 8*1024*1024)
	v.SetDefault("FORWARD_ATTACHMENTS", false)
	v.SetDefault("STATE_BACKEND", BackendBadger)
	v.SetDefault("BADGERDB_PATH", "./badger_data")
	v.SetDefault("STATE_FILE", "./state.json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	// Registered so AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("DISCORD_BOT_TOKEN", "")
	for key := range idKeys {
		v.SetDefault(key, "")
	}
	return v
}

// LoadConfig reads configuration from path/config.yaml and the environment.
func LoadConfig(path string) (Config, error) {
	return Load(New(path))
}

// Load reads the config file (if any) into v and decodes it. The file is optional;
// environment variables alone are enough.
func Load(v *viper.Viper) (config Config, err error) {
	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	for key, field := range idKeys {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			return Config{}, fmt.Errorf("%s is not set", key)
		}
		id, err := snowflake.Parse(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s is not a valid ID: %w", key, err)
		}
		*field(&config) = id
	}

	if err = config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if c.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is not set")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", c.ScanInterval)
	}
	if c.AttachmentSizeLimit <= 0 {
		return fmt.Errorf("ATTACHMENT_SIZE_LIMIT must be positive, got %d", c.AttachmentSizeLimit)
	}
	switch c.StateBackend {
	case BackendBadger, BackendFile:
	default:
		return fmt.Errorf("STATE_BACKEND must be %q or %q, got %q", BackendBadger, BackendFile, c.StateBackend)
	}
	return nil
}
