package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string `env:"SERVER_PORT, default=8080"`
	Env         string `env:"ENV,         default=development"`
	LogLevel    string `env:"LOG_LEVEL,   default=info"`
	MySQLDSN    string `env:"MYSQL_DSN,   default=user:password@tcp(localhost:3306)/timetrack?charset=utf8mb4&parseTime=True&loc=Local"`
	JWTSecret   string `env:"JWT_SECRET,  default=change-me"`
	SwaggerHost string `env:"SWAGGER_HOST"`

	Redis RedisConfig
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	DB       int    `env:"REDIS_DB,   default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

// Load builds Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
