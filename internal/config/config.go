// Package config loads server configuration from DUTCHPAY_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the complete server configuration.
type Config struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	DBPath    string `env:"DB_PATH" envDefault:"./data/dutchpay.db"`
	StaticDir string `env:"STATIC_DIR" envDefault:"./static"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Sessions leave memory after SessionIdle without use and are deleted
	// once their token can no longer be valid (TokenTTL after creation).
	SessionIdle   time.Duration `env:"SESSION_IDLE" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	AnalyzerURL     string        `env:"ANALYZER_URL" envDefault:"http://localhost:5000/analyze"`
	AnalyzerTimeout time.Duration `env:"ANALYZER_TIMEOUT" envDefault:"30s"`

	// Redis caches analysis results; disabled when RedisAddr is empty.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"24h"`

	// S3 archives uploaded receipt images; disabled when S3Bucket is empty.
	S3Bucket string `env:"S3_BUCKET"`
	S3Region string `env:"S3_REGION" envDefault:"ap-northeast-2"`
	S3Prefix string `env:"S3_PREFIX" envDefault:"receipts/"`

	// Kakao sends share messages; disabled when KakaoToken is empty.
	KakaoBaseURL string        `env:"KAKAO_BASE_URL" envDefault:"https://kapi.kakao.com"`
	KakaoToken   string        `env:"KAKAO_ACCESS_TOKEN"`
	KakaoTimeout time.Duration `env:"KAKAO_TIMEOUT" envDefault:"10s"`
	ShareLink    string        `env:"SHARE_LINK" envDefault:"http://localhost:8080"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Prefix is prepended to every variable name.
const Prefix = "DUTCHPAY_"

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.TokenSecret == "" {
		errs = append(errs, errors.New(Prefix+"TOKEN_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New(Prefix+"TOKEN_TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New(Prefix+"SWEEP_INTERVAL must be positive"))
	}
	if c.AnalyzerURL == "" {
		errs = append(errs, errors.New(Prefix+"ANALYZER_URL is required"))
	}
	if c.AnalyzerTimeout < 0 {
		errs = append(errs, errors.New(Prefix+"ANALYZER_TIMEOUT must not be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", Prefix, c.LogFormat))
	}
	return errors.Join(errs...)
}

// CacheEnabled reports whether analysis results are cached in Redis.
func (c Config) CacheEnabled() bool { return c.RedisAddr != "" }

// ArchiveEnabled reports whether receipt images are archived to S3.
func (c Config) ArchiveEnabled() bool { return c.S3Bucket != "" }

// SharingEnabled reports whether share messages can be sent through Kakao.
func (c Config) SharingEnabled() bool { return c.KakaoToken != "" }
