package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"bugtracker/pkg/config"
)

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	Redis  config.RedisConfig  `yaml:"redis"`
	MQ     config.MQConfig     `yaml:"mq"`
	CORS   config.CORSConfig   `yaml:"cors"`
}

func Load() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode %s: %v", path, err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideCORSFromEnv(&cfg.CORS)

	return &cfg
}
