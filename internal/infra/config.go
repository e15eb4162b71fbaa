package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"dex_watch/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	envPrefix = "DEXWATCH_"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		DexScreener struct {
			BaseURL           string `yaml:"base_url"`
			Chain             string `yaml:"chain"`
			TimeoutSec        int    `yaml:"timeout_sec"`
			RequestsPerMinute int    `yaml:"requests_per_minute"`
			Breaker           struct {
				MaxFailures    uint32 `yaml:"max_failures"`
				OpenTimeoutSec int    `yaml:"open_timeout_sec"`
			} `yaml:"breaker"`
		} `yaml:"dexscreener"`
	} `yaml:"api"`

	Refresh struct {
		IntervalMS  int `yaml:"interval_ms"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"refresh"`

	Storage struct {
		SyncPath string `yaml:"sync_path"` // sqlite file; empty = user config dir
		LocalDir string `yaml:"local_dir"` // badger dir; empty = in-memory
		IconsDir string `yaml:"icons_dir"` // empty = user config dir
	} `yaml:"storage"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "dexwatch"
	cfg.App.Version = "dev"
	cfg.API.DexScreener.BaseURL = "https://api.dexscreener.com/latest/dex/pairs"
	cfg.API.DexScreener.Chain = "solana"
	cfg.API.DexScreener.TimeoutSec = 10
	cfg.API.DexScreener.RequestsPerMinute = 300
	cfg.API.DexScreener.Breaker.MaxFailures = 5
	cfg.API.DexScreener.Breaker.OpenTimeoutSec = 30
	cfg.Refresh.IntervalMS = 3000
	cfg.Refresh.Concurrency = 1
	cfg.Server.Addr = "127.0.0.1:8787"
	cfg.Logging.Level = "info"
	cfg.Logging.File = "logs/dexwatch.log"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// 파일이 없으면 기본값을 사용합니다.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.DexScreener.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigError{Field: "api.dexscreener.base_url", Err: fmt.Errorf("invalid URL: %q", c.API.DexScreener.BaseURL)}
	}
	if c.API.DexScreener.Chain == "" {
		return &domain.ConfigError{Field: "api.dexscreener.chain", Err: errors.New("chain is required")}
	}
	if c.API.DexScreener.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.dexscreener.timeout_sec", Err: errors.New("must be positive")}
	}
	if c.API.DexScreener.RequestsPerMinute < 0 {
		return &domain.ConfigError{Field: "api.dexscreener.requests_per_minute", Err: errors.New("must not be negative")}
	}
	if c.API.DexScreener.Breaker.MaxFailures == 0 {
		return &domain.ConfigError{Field: "api.dexscreener.breaker.max_failures", Err: errors.New("must be positive")}
	}
	if c.API.DexScreener.Breaker.OpenTimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.dexscreener.breaker.open_timeout_sec", Err: errors.New("must be positive")}
	}

	if c.Refresh.IntervalMS <= 0 {
		return &domain.ConfigError{Field: "refresh.interval_ms", Err: errors.New("refresh interval must be positive")}
	}
	if c.Refresh.Concurrency < 1 || c.Refresh.Concurrency > domain.MaxItems {
		return &domain.ConfigError{Field: "refresh.concurrency", Err: fmt.Errorf("must be between 1 and %d", domain.MaxItems)}
	}

	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("address is required")}
	}

	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		cfg.API.DexScreener.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "CHAIN"); v != "" {
		cfg.API.DexScreener.Chain = v
	}
	if v, ok := envInt("REFRESH_INTERVAL_MS"); ok {
		cfg.Refresh.IntervalMS = v
	}
	if v := os.Getenv(envPrefix + "ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(envPrefix + "SYNC_PATH"); v != "" {
		cfg.Storage.SyncPath = v
	}
	if v := os.Getenv(envPrefix + "LOCAL_DIR"); v != "" {
		cfg.Storage.LocalDir = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
