package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"signal_bridge/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when SIGNAL_BRIDGE_CONFIG is not set
	DefaultConfigPath = "configs/config.yaml"

	defaultSubmitTimeout = 15 * time.Second
	defaultNotifyTimeout = 5 * time.Second
	defaultMaxBodyBytes  = 64 << 10
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		MaxBodyBytes    int64         `yaml:"max_body_bytes"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`

	Broker struct {
		Token         string        `yaml:"token"`
		AccountID     string        `yaml:"account_id"`
		Sandbox       bool          `yaml:"sandbox"`
		Paper         bool          `yaml:"paper"`
		RestURL       string        `yaml:"rest_url"`
		SandboxURL    string        `yaml:"sandbox_url"`
		AppName       string        `yaml:"app_name"`
		SubmitTimeout time.Duration `yaml:"submit_timeout"`
	} `yaml:"broker"`

	Sandbox struct {
		Balances []domain.Money `yaml:"balances"`
	} `yaml:"sandbox"`

	Telegram struct {
		Token   string        `yaml:"token"`
		ChatID  string        `yaml:"chat_id"`
		APIURL  string        `yaml:"api_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`

	// Tickers maps a ticker symbol to the venue's instrument id (FIGI)
	Tickers map[string]string `yaml:"tickers"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// .env 파일이 있으면 먼저 로드하여 환경 변수로 사용합니다.
func LoadConfig(path string) (*Config, error) {
	// Missing .env is fine: production passes secrets through the environment.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML bytes, applies env overrides and defaults, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("listen address is required")}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return &domain.ConfigError{Field: "server.max_body_bytes", Err: errors.New("must be positive")}
	}

	if c.Broker.Token == "" && !c.Broker.Paper {
		return &domain.ConfigError{Field: "broker.token", Err: errors.New("API token is required (TINKOFF_TOKEN)")}
	}
	if !hasHTTPPrefix(c.Broker.RestURL) {
		return &domain.ConfigError{Field: "broker.rest_url", Err: fmt.Errorf("invalid URL: %q", c.Broker.RestURL)}
	}
	if !hasHTTPPrefix(c.Broker.SandboxURL) {
		return &domain.ConfigError{Field: "broker.sandbox_url", Err: fmt.Errorf("invalid URL: %q", c.Broker.SandboxURL)}
	}
	if c.Broker.SubmitTimeout <= 0 {
		return &domain.ConfigError{Field: "broker.submit_timeout", Err: errors.New("must be positive")}
	}

	if c.Telegram.Timeout <= 0 {
		return &domain.ConfigError{Field: "telegram.timeout", Err: errors.New("must be positive")}
	}

	for i, b := range c.Sandbox.Balances {
		if b.Currency == "" {
			return &domain.ConfigError{Field: fmt.Sprintf("sandbox.balances[%d].currency", i), Err: errors.New("currency is required")}
		}
		if !b.Amount.IsPositive() {
			return &domain.ConfigError{Field: fmt.Sprintf("sandbox.balances[%d].amount", i), Err: errors.New("must be positive")}
		}
	}

	if len(c.Tickers) == 0 {
		return &domain.ConfigError{Field: "tickers", Err: errors.New("at least one ticker mapping is required")}
	}
	seen := make(map[string]string, len(c.Tickers))
	for ticker, figi := range c.Tickers {
		key := strings.ToUpper(strings.TrimSpace(ticker))
		if key == "" || strings.TrimSpace(figi) == "" {
			return &domain.ConfigError{Field: "tickers", Err: fmt.Errorf("empty ticker or instrument id for %q", ticker)}
		}
		if prev, dup := seen[key]; dup {
			return &domain.ConfigError{Field: "tickers", Err: fmt.Errorf("duplicate ticker %q (also %q)", ticker, prev)}
		}
		seen[key] = ticker
	}

	return nil
}

// BrokerURL returns the REST endpoint for the active mode.
func (c *Config) BrokerURL() string {
	if c.Broker.Sandbox {
		return c.Broker.SandboxURL
	}
	return c.Broker.RestURL
}

func hasHTTPPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "signal-bridge"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Broker.RestURL == "" {
		cfg.Broker.RestURL = "https://invest-public-api.tinkoff.ru/rest/"
	}
	if cfg.Broker.SandboxURL == "" {
		cfg.Broker.SandboxURL = "https://sandbox-invest-public-api.tinkoff.ru/rest/"
	}
	if cfg.Broker.AppName == "" {
		cfg.Broker.AppName = cfg.App.Name
	}
	if cfg.Broker.SubmitTimeout == 0 {
		cfg.Broker.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = defaultNotifyTimeout
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if token := os.Getenv("TINKOFF_TOKEN"); token != "" {
		cfg.Broker.Token = token
	}
	if account := os.Getenv("TINKOFF_ACCOUNT_ID"); account != "" {
		cfg.Broker.AccountID = account
	}
	if sandbox := os.Getenv("USE_SANDBOX"); sandbox != "" {
		if v, err := strconv.ParseBool(sandbox); err == nil {
			cfg.Broker.Sandbox = v
		}
	}
	if paper := os.Getenv("PAPER_TRADING"); paper != "" {
		if v, err := strconv.ParseBool(paper); err == nil {
			cfg.Broker.Paper = v
		}
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
