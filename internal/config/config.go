package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWSEndpoint     = "wss://stream.binance.com:9443/ws"
	DefaultPricePrecision = 7
	DefaultPort           = 8080
	DefaultStoragePath    = "trailing_stop.db"

	// PrecisionFromExchange asks the bot to read the tick size from exchange info.
	PrecisionFromExchange = -1
)

type Config struct {
	Exchange struct {
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
		Testnet      bool   `yaml:"testnet"`
	} `yaml:"exchange"`
	Trailing struct {
		Symbol           string  `yaml:"symbol"`
		Margin           float64 `yaml:"margin"`
		PricePrecision   *int32  `yaml:"price_precision"`
		RestoreAttempts  *int    `yaml:"restore_attempts"`
		RestoreBackoffMs int     `yaml:"restore_backoff_ms"`
	} `yaml:"trailing"`
	Logging struct {
		Level          string `yaml:"level"`
		Encoding       string `yaml:"encoding"`
		AccountLogFile string `yaml:"account_log_file"`
	} `yaml:"logging"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// envOverrides are read from the process environment (and .env when present).
// Non-empty values replace the file's.
type envOverrides struct {
	APIKey    string `envconfig:"BINANCE_API_KEY"`
	APISecret string `envconfig:"BINANCE_API_SECRET"`
	Symbol    string `envconfig:"TRAILING_SYMBOL"`
	Margin    string `envconfig:"TRAILING_MARGIN"`
}

// Load reads the YAML file at path, applies environment overrides and defaults.
// It does not validate; call Validate once the result is final.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if env.APIKey != "" {
		c.Exchange.APIKey = env.APIKey
	}
	if env.APISecret != "" {
		c.Exchange.APISecret = env.APISecret
	}
	if env.Symbol != "" {
		c.Trailing.Symbol = env.Symbol
	}
	if env.Margin != "" {
		m, err := strconv.ParseFloat(env.Margin, 64)
		if err != nil {
			return fmt.Errorf("TRAILING_MARGIN: %w", err)
		}
		c.Trailing.Margin = m
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Trailing.Symbol = strings.ToUpper(strings.TrimSpace(c.Trailing.Symbol))
	if c.Exchange.WSEndpoint == "" && !c.Exchange.Testnet {
		c.Exchange.WSEndpoint = DefaultWSEndpoint
	}
	if c.Trailing.PricePrecision == nil {
		p := int32(DefaultPricePrecision)
		c.Trailing.PricePrecision = &p
	}
	if c.Trailing.RestoreAttempts == nil {
		n := 2
		c.Trailing.RestoreAttempts = &n
	}
	if c.Trailing.RestoreBackoffMs == 0 {
		c.Trailing.RestoreBackoffMs = 500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Trailing.Symbol == "" {
		errs = append(errs, errors.New("trailing.symbol is required"))
	}
	if c.Trailing.Margin <= 0 || c.Trailing.Margin >= 1 {
		errs = append(errs, fmt.Errorf("trailing.margin must be in (0, 1), got %v", c.Trailing.Margin))
	}
	if p := c.Precision(); p < PrecisionFromExchange || p > 16 {
		errs = append(errs, fmt.Errorf("trailing.price_precision must be -1 or in [0, 16], got %d", p))
	}
	if c.RestoreAttempts() < 0 {
		errs = append(errs, errors.New("trailing.restore_attempts must not be negative"))
	}
	if c.Trailing.RestoreBackoffMs < 0 {
		errs = append(errs, errors.New("trailing.restore_backoff_ms must not be negative"))
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		errs = append(errs, errors.New("exchange credentials are required (api_key / api_secret or BINANCE_API_KEY / BINANCE_API_SECRET)"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

func (c *Config) Precision() int32 {
	if c.Trailing.PricePrecision == nil {
		return DefaultPricePrecision
	}
	return *c.Trailing.PricePrecision
}

func (c *Config) RestoreAttempts() int {
	if c.Trailing.RestoreAttempts == nil {
		return 2
	}
	return *c.Trailing.RestoreAttempts
}

func (c *Config) RestoreBackoff() time.Duration {
	return time.Duration(c.Trailing.RestoreBackoffMs) * time.Millisecond
}
