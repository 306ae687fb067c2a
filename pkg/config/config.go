package config

import (
	"os"
	"strconv"
	"strings"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig holds the RabbitMQ broker URL.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// OverrideDBFromEnv applies DB_* environment variables over cfg.
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv applies MQ_URL over cfg.
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv applies REDIS_* environment variables over cfg.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.DB = n
		}
	}
}

// OverrideJWTFromEnv applies JWT_SECRET over cfg.
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv applies SERVER_PORT over cfg.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideCORSFromEnv applies CORS_ALLOW_ORIGINS (comma separated) over cfg.
func OverrideCORSFromEnv(cfg *CORSConfig) {
	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		cfg.AllowOrigins = cfg.AllowOrigins[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, p)
			}
		}
	}
}
