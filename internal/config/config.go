package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Progression  ProgressionConfig  `mapstructure:"progression"`
	DailyMix     DailyMixConfig     `mapstructure:"daily_mix"`
	Achievements AchievementsConfig `mapstructure:"achievements"`
	Engine       EngineConfig       `mapstructure:"engine"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	CORS            CORSConfig    `mapstructure:"cors"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	// Migrate applies pending schema migrations when the server starts.
	Migrate bool `mapstructure:"migrate"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host" validate:"required"`
	Port            int               `mapstructure:"port" validate:"min=1,max=65535"`
	Database        string            `mapstructure:"database" validate:"required"`
	Username        string            `mapstructure:"username" validate:"required"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds" validate:"gte=0"`
}

// CatalogConfig selects where content items come from. URL wins over File.
type CatalogConfig struct {
	File             string        `mapstructure:"file" validate:"required_without=URL"`
	URL              string        `mapstructure:"url" validate:"omitempty,url"`
	Token            string        `mapstructure:"token"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetryAttempts uint          `mapstructure:"max_retry_attempts" validate:"min=1"`
}

type SchedulerConfig struct {
	InitialEasinessFactor float64 `mapstructure:"initial_easiness_factor" validate:"gte=1.3"`
	MinEasinessFactor     float64 `mapstructure:"min_easiness_factor" validate:"gt=0,ltefield=InitialEasinessFactor"`
	FirstIntervalDays     int     `mapstructure:"first_interval_days" validate:"min=1"`
	SecondIntervalDays    int     `mapstructure:"second_interval_days" validate:"min=1"`
	LapseIntervalDays     int     `mapstructure:"lapse_interval_days" validate:"min=1"`
	PassQuality           int     `mapstructure:"pass_quality" validate:"min=1,max=5"`
}

type ProgressionConfig struct {
	BaseXP          int     `mapstructure:"base_xp" validate:"min=1"`
	Growth          float64 `mapstructure:"growth" validate:"gte=1"`
	MaxLevel        int     `mapstructure:"max_level" validate:"min=2"`
	LearnModeFactor float64 `mapstructure:"learn_mode_factor" validate:"gt=0,lte=1"`
	PartialCredit   float64 `mapstructure:"partial_credit" validate:"gte=0,lte=1"`
	CorrectAccuracy int     `mapstructure:"correct_accuracy" validate:"min=1,max=100"`
}

type DailyMixConfig struct {
	ReviewShare  float64 `mapstructure:"review_share" validate:"gt=0,lte=1"`
	DefaultItems int     `mapstructure:"default_items" validate:"min=1,ltefield=MaxItems"`
	MaxItems     int     `mapstructure:"max_items" validate:"min=1"`
}

type AchievementsConfig struct {
	// File overrides the built-in definitions.
	File string `mapstructure:"file" validate:"omitempty,file"`
}

type EngineConfig struct {
	Timezone           string        `mapstructure:"timezone" validate:"timezone"`
	MaxConflictRetries uint          `mapstructure:"max_conflict_retries" validate:"min=1,max=20"`
	ConflictBackoff    time.Duration `mapstructure:"conflict_backoff" validate:"gte=0"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
}

// Location returns the learners' calendar time zone.
func (c EngineConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("time.LoadLocation(%s) > %w", c.Timezone, err)
	}
	return loc, nil
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/kioku")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.migrate", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "kioku")
	v.SetDefault("database.username", "user")
	v.SetDefault("catalog.file", "catalog.yml")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.max_retry_attempts", 3)
	v.SetDefault("scheduler.initial_easiness_factor", 2.5)
	v.SetDefault("scheduler.min_easiness_factor", 1.3)
	v.SetDefault("scheduler.first_interval_days", 1)
	v.SetDefault("scheduler.second_interval_days", 6)
	v.SetDefault("scheduler.lapse_interval_days", 1)
	v.SetDefault("scheduler.pass_quality", 3)
	v.SetDefault("progression.base_xp", 100)
	v.SetDefault("progression.growth", 1.25)
	v.SetDefault("progression.max_level", 50)
	v.SetDefault("progression.learn_mode_factor", 0.5)
	v.SetDefault("progression.partial_credit", 0.2)
	v.SetDefault("progression.correct_accuracy", 90)
	v.SetDefault("daily_mix.review_share", 0.6)
	v.SetDefault("daily_mix.default_items", 20)
	v.SetDefault("daily_mix.max_items", 200)
	v.SetDefault("achievements.file", "")
	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("engine.max_conflict_retries", 3)
	v.SetDefault("engine.conflict_backoff", "20ms")
	v.SetDefault("engine.store_timeout", "5s")

	// Secrets are read from the environment
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("catalog.token", "KIOKU_CATALOG_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind KIOKU_CATALOG_TOKEN environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	// a remote catalog makes the local default irrelevant
	if cfg.Catalog.URL != "" && !v.InConfig("catalog.file") {
		cfg.Catalog.File = ""
	}

	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
