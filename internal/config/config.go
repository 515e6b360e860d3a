package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	JWTSecret string `mapstructure:"jwt_secret"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Platform struct {
		BaseURL      string        `mapstructure:"base_url"`
		ServiceToken string        `mapstructure:"service_token"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"platform"`

	Turn struct {
		Host   string `mapstructure:"host"`
		Port   int    `mapstructure:"port"`
		Secret string `mapstructure:"secret"`
	} `mapstructure:"turn"`

	Matchmaking struct {
		QueueTTL      time.Duration `mapstructure:"queue_ttl"`
		RoomTTL       time.Duration `mapstructure:"room_ttl"`
		MaxStaleSkips int           `mapstructure:"max_stale_skips"`
		SearchLimit   int           `mapstructure:"search_limit"`
		SearchWindow  time.Duration `mapstructure:"search_window"`
	} `mapstructure:"matchmaking"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("platform.base_url", "http://localhost:3000/internal")
	v.SetDefault("platform.timeout", "5s")
	v.SetDefault("turn.port", 3478)
	v.SetDefault("matchmaking.queue_ttl", "5m")
	v.SetDefault("matchmaking.room_ttl", "2h")
	v.SetDefault("matchmaking.max_stale_skips", 5)
	v.SetDefault("matchmaking.search_limit", 10)
	v.SetDefault("matchmaking.search_window", "1m")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
