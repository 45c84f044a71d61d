package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the server.
type Config struct {
	Server struct {
		Port           string `yaml:"port" env:"PORT"`
		AllowedOrigins string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Mongo struct {
		URI      string `yaml:"uri" env:"MONGODB_URI"`
		Database string `yaml:"database" env:"MONGODB_DATABASE"`
	} `yaml:"mongo"`

	Redis struct {
		// Addr left empty disables caching.
		Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
		DB       int           `yaml:"db" env:"REDIS_DB"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	} `yaml:"redis"`

	Session struct {
		Secret       string        `yaml:"secret" env:"SESSION_SECRET"`
		TTL          time.Duration `yaml:"ttl" env:"SESSION_TTL"`
		SecureCookie bool          `yaml:"secure_cookie" env:"COOKIE_SECURE"`
	} `yaml:"session"`

	Images struct {
		Dir        string `yaml:"dir" env:"IMAGE_DIR"`
		ConvertCmd string `yaml:"convert_cmd" env:"IMAGE_CONVERT_CMD"`
	} `yaml:"images"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
	} `yaml:"logging"`

	// Seed is read for compatibility with existing deployments; the server
	// does not seed data.
	Seed bool `yaml:"seed" env:"SEED"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file if present, and finally the process environment.
func Load(path string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.AllowedOrigins = "http://localhost:3000,http://localhost:5173"

	config.Mongo.URI = "mongodb://localhost:27017"
	config.Mongo.Database = "conhub"

	config.Redis.CacheTTL = time.Minute

	config.Session.TTL = 24 * time.Hour

	config.Images.Dir = "./images"

	config.Logging.Level = "info"
	config.Logging.Pretty = true
}

func validate(config *Config) error {
	if config.Mongo.URI == "" {
		return fmt.Errorf("MongoDB URI is required")
	}
	if config.Mongo.Database == "" {
		return fmt.Errorf("MongoDB database name is required")
	}
	if config.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if config.Redis.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}

// Origins splits the configured CORS origin list.
func (c *Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.Server.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
