package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort        string
	AllowedOrigins []string

	MongoURI      string
	MongoDatabase string

	RedisAddr string
	RedisDB   int
	CacheTTL  time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	UploadDir      string
	UploadMaxWidth int
	UploadTimeout  time.Duration
	UploadMaxBytes int64

	NearMaxDistance float64
	PageSize        int

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logrus.Debug("no .env file found, using environment only")
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "store_finder")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("UPLOAD_DIR", "./public/uploads")
	v.SetDefault("UPLOAD_MAX_WIDTH", 800)
	v.SetDefault("UPLOAD_TIMEOUT", "10s")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("NEAR_MAX_DISTANCE", 10000)
	v.SetDefault("PAGE_SIZE", 6)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:         v.GetString("APP_PORT"),
		AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
		MongoURI:        v.GetString("MONGODB_URI"),
		MongoDatabase:   v.GetString("MONGODB_DATABASE"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisDB:         v.GetInt("REDIS_DB"),
		CacheTTL:        v.GetDuration("CACHE_TTL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTTTL:          v.GetDuration("JWT_TTL"),
		UploadDir:       v.GetString("UPLOAD_DIR"),
		UploadMaxWidth:  v.GetInt("UPLOAD_MAX_WIDTH"),
		UploadTimeout:   v.GetDuration("UPLOAD_TIMEOUT"),
		UploadMaxBytes:  v.GetInt64("UPLOAD_MAX_BYTES"),
		NearMaxDistance: v.GetFloat64("NEAR_MAX_DISTANCE"),
		PageSize:        v.GetInt("PAGE_SIZE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI environment variable is not set")
	}
	if c.UploadMaxWidth <= 0 {
		return fmt.Errorf("invalid UPLOAD_MAX_WIDTH value: %d", c.UploadMaxWidth)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("invalid PAGE_SIZE value: %d", c.PageSize)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("invalid JWT_TTL value: %s", c.JWTTTL)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL value: %w", err)
	}
	return nil
}

// ConfigureLogger applies the level and format to the standard logrus logger.
func (c *Config) ConfigureLogger() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
