package config

import (
	"fmt"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	GRPCPort     int    `yaml:"grpc-port" env:"GRPC_PORT" env-default:"50051"`
	HTTPPort     int    `yaml:"http-port" env:"HTTP_PORT" env-default:"8080"`
	Shards       int    `yaml:"shards" env:"STORE_SHARDS" env-default:"64"`
	StreamBuffer int    `yaml:"stream-buffer" env:"STREAM_BUFFER" env-default:"10"`
}

// Load reads the YAML file at path with environment overrides. An empty
// path reads the environment only.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
		return config, nil
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

// MustLoad - load configuration or panic.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Level maps LogLevel onto a slog level, defaulting to info.
func (that *Config) Level() slog.Level {
	switch that.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
