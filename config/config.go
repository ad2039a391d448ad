package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port" env:"PORT"`
		AllowedOrigins []string `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`
		// InternalToken guards the /internal routes when set.
		InternalToken string `yaml:"internalToken" env:"INTERNAL_TOKEN"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
	} `yaml:"log"`

	Database struct {
		URI  string `yaml:"uri" env:"MONGODB_URI"`
		Name string `yaml:"name" env:"MONGODB_DATABASE"`
	} `yaml:"database"`

	Redis struct {
		Addr         string `yaml:"addr" env:"REDIS_ADDR"`
		Password     string `yaml:"password" env:"REDIS_PASSWORD"`
		DB           int    `yaml:"db" env:"REDIS_DB"`
		StreamMaxLen int64  `yaml:"streamMaxLen" env:"REDIS_STREAM_MAXLEN"`
	} `yaml:"redis"`

	Gemini struct {
		ApiKey string `yaml:"apiKey" env:"GEMINI_API_KEY"`
		Model  string `yaml:"model" env:"GEMINI_MODEL"`
	} `yaml:"gemini"`

	Phases struct {
		SideSelection time.Duration `yaml:"sideSelection" env:"PHASE_SIDE_SELECTION"`
		OpeningPrep   time.Duration `yaml:"openingPrep" env:"PHASE_OPENING_PREP"`
		Judging       time.Duration `yaml:"judging" env:"PHASE_JUDGING"`
		JudgeTimeout  time.Duration `yaml:"judgeTimeout" env:"JUDGE_TIMEOUT"`
	} `yaml:"phases"`

	Tick struct {
		// Interval runs the phase machine in process when positive. Zero leaves ticking
		// to an external scheduler.
		Interval time.Duration `yaml:"interval" env:"TICK_INTERVAL"`
	} `yaml:"tick"`

	RateLimit struct {
		MaxMessages int           `yaml:"maxMessages" env:"RATE_LIMIT_MESSAGES"`
		Window      time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	} `yaml:"rateLimit"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 1313
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Log.Level = "info"
	cfg.Phases.SideSelection = 30 * time.Second
	cfg.Phases.OpeningPrep = 30 * time.Second
	cfg.Phases.Judging = 15 * time.Second
	cfg.Phases.JudgeTimeout = 60 * time.Second
	cfg.Redis.StreamMaxLen = 1000
	cfg.RateLimit.MaxMessages = 5
	cfg.RateLimit.Window = 10 * time.Second
	return &cfg
}

// LoadConfig layers the yaml file at path over the defaults, then a .env file and the
// process environment over that. An empty path skips the yaml file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Phases.SideSelection <= 0 || c.Phases.OpeningPrep <= 0 || c.Phases.Judging <= 0 {
		return errors.New("phase durations must be positive")
	}
	if c.Phases.JudgeTimeout <= 0 {
		return errors.New("judge timeout must be positive")
	}
	if c.Tick.Interval < 0 {
		return errors.New("tick interval cannot be negative")
	}
	return nil
}
