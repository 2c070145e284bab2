package main

import (
	"fmt"
	"strings"
	"time"

	"questtracker/internal/cache"
	"questtracker/internal/middleware"
	"questtracker/internal/repository"
	"questtracker/internal/service"
	"questtracker/pkg/logger"
	"questtracker/pkg/tracing"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`
	Log      logger.Config     `yaml:"log"`
	Ledger   LedgerConfig      `yaml:"ledger"`

	RateLimit middleware.RateLimitConfig `yaml:"rateLimit"`
	Redis     cache.Config               `yaml:"redis"`
	Tracing   tracing.Config             `yaml:"tracing"`

	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type LedgerConfig struct {
	Timezone           string `yaml:"timezone"`
	DailyPointCap      int    `yaml:"dailyPointCap"`
	TemplateWindowDays int    `yaml:"templateWindowDays"`
	DefaultDailyTarget int    `yaml:"defaultDailyTarget"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
}

func (c LedgerConfig) toService() (service.LedgerConfig, error) {
	loc := time.UTC
	if c.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(c.Timezone)
		if err != nil {
			return service.LedgerConfig{}, fmt.Errorf("invalid ledger timezone %q: %w", c.Timezone, err)
		}
	}
	return service.LedgerConfig{
		Location:           loc,
		DailyPointCap:      c.DailyPointCap,
		TemplateWindowDays: c.TemplateWindowDays,
		DefaultDailyTarget: c.DefaultDailyTarget,
	}, nil
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("ledger.timezone", "UTC")
	viper.SetDefault("ledger.dailyPointCap", 200)
	viper.SetDefault("ledger.templateWindowDays", 30)
	viper.SetDefault("ledger.defaultDailyTarget", 100)
	viper.SetDefault("rateLimit.maxRequests", 60)
	viper.SetDefault("rateLimit.window", "1m")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
