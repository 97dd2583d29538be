package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig tunes match pacing. Durations are in milliseconds so clients
// can mirror them without unit conversion.
type GameConfig struct {
	DefaultTurnMs int `mapstructure:"default_turn_ms"`
	GraceMs       int `mapstructure:"grace_ms"`
	BotMinDelayMs int `mapstructure:"bot_min_delay_ms"`
	BotMaxDelayMs int `mapstructure:"bot_max_delay_ms"`
	MaxSeats      int `mapstructure:"max_seats"`
}

func (g GameConfig) DefaultTurn() time.Duration { return time.Duration(g.DefaultTurnMs) * time.Millisecond }
func (g GameConfig) Grace() time.Duration       { return time.Duration(g.GraceMs) * time.Millisecond }
func (g GameConfig) BotMinDelay() time.Duration { return time.Duration(g.BotMinDelayMs) * time.Millisecond }
func (g GameConfig) BotMaxDelay() time.Duration { return time.Duration(g.BotMaxDelayMs) * time.Millisecond }

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("game.default_turn_ms", 30000)
	viper.SetDefault("game.grace_ms", 60000)
	viper.SetDefault("game.bot_min_delay_ms", 1000)
	viper.SetDefault("game.bot_max_delay_ms", 3000)
	viper.SetDefault("game.max_seats", 4)

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// Defaults and environment variables carry a config-less deploy.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
