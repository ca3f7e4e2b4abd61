package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Mistral  MistralConfig  `mapstructure:"mistral"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Bot      BotConfig      `mapstructure:"bot"`
}

type DiscordConfig struct {
	Token         string `mapstructure:"token"`
	CommandPrefix string `mapstructure:"command_prefix"`
}

type MistralConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultsConfig holds the process-wide fallback moderator role and channel
// applied to guilds that never configured their own.
type DefaultsConfig struct {
	ModRoleID    string `mapstructure:"mod_role_id"`
	ModChannelID string `mapstructure:"mod_channel_id"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type BotConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("discord.command_prefix", "!")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai")
	v.SetDefault("mistral.model", "mistral-moderation-latest")
	v.SetDefault("mistral.timeout", "10s")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("bot.name", "ModBot")
	v.SetDefault("bot.version", "1.0.0")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("DISCORD_TOKEN"); token != "" {
		config.Discord.Token = token
	}

	if apiKey := v.GetString("MISTRAL_API_KEY"); apiKey != "" {
		config.Mistral.APIKey = apiKey
	}

	if roleID := v.GetString("MOD_ROLE_ID"); roleID != "" {
		config.Defaults.ModRoleID = roleID
	}

	if channelID := v.GetString("MOD_CHANNEL_ID"); channelID != "" {
		config.Defaults.ModChannelID = channelID
	}

	if name := v.GetString("BOT_NAME"); name != "" {
		config.Bot.Name = name
	}

	if version := v.GetString("BOT_VERSION"); version != "" {
		config.Bot.Version = version
	}

	if config.Discord.Token == "" {
		return nil, fmt.Errorf("missing required configuration: discord token")
	}
	if config.Mistral.APIKey == "" {
		return nil, fmt.Errorf("missing required configuration: mistral api key")
	}

	return &config, nil
}
