package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Analytics configuration.
	FetchTimeoutSeconds int    `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	DefaultWindowDays   int    `mapstructure:"DEFAULT_WINDOW_DAYS"`
	FunnelDays          int    `mapstructure:"FUNNEL_DAYS"`
	Timezone            string `mapstructure:"TIMEZONE"`
	RealtimeEnabled     bool   `mapstructure:"REALTIME_ENABLED"`
	WorkerConcurrency   int    `mapstructure:"WORKER_CONCURRENCY"`
}

var AppConfig Config

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 3)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "bloomify")
	v.SetDefault("FETCH_TIMEOUT_SECONDS", 5)
	v.SetDefault("DEFAULT_WINDOW_DAYS", 30)
	v.SetDefault("FUNNEL_DAYS", 7)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("REALTIME_ENABLED", true)
	v.SetDefault("WORKER_CONCURRENCY", 5)
}

// Load reads configuration from v into a Config value.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// FetchTimeout is the deadline given to each record store fetch.
func (c Config) FetchTimeout() time.Duration {
	if c.FetchTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}
