package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TTL       time.Duration `yaml:"ttl"`
}

type RouterConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	HotspotProfile string        `yaml:"hotspot_profile"`
	DHCPServer     string        `yaml:"dhcp_server"`
}

type ProvisionConfig struct {
	Workers   int           `yaml:"workers"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
	QueueSize int           `yaml:"queue_size"`
}

type SchedulerConfig struct {
	DriftCron  string `yaml:"drift_cron"`
	ExpiryCron string `yaml:"expiry_cron"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Router    RouterConfig    `yaml:"router"`
	Provision ProvisionConfig `yaml:"provision"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 30 * time.Minute
	}
	if cfg.Router.ConnectTimeout <= 0 {
		cfg.Router.ConnectTimeout = 5 * time.Second
	}
	if cfg.Router.CommandTimeout <= 0 {
		cfg.Router.CommandTimeout = 10 * time.Second
	}
	if cfg.Router.HotspotProfile == "" {
		cfg.Router.HotspotProfile = "default"
	}
	if cfg.Router.DHCPServer == "" {
		cfg.Router.DHCPServer = "defconf"
	}
	if cfg.Provision.Workers <= 0 {
		cfg.Provision.Workers = 4
	}
	if cfg.Provision.LockTTL <= 0 {
		cfg.Provision.LockTTL = 30 * time.Second
	}
	if cfg.Provision.QueueSize <= 0 {
		cfg.Provision.QueueSize = 64
	}
	if cfg.Scheduler.DriftCron == "" {
		cfg.Scheduler.DriftCron = "*/30 * * * *"
	}
	if cfg.Scheduler.ExpiryCron == "" {
		cfg.Scheduler.ExpiryCron = "5 * * * *"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
