package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"funding_bot/internal/models"
	"funding_bot/internal/strategy"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"

	binanceKeyENV    = "BINANCE_API_KEY"
	binanceSecretENV = "BINANCE_API_SECRET"
	tokenTelegramENV = "TELEGRAM_TOKEN"
	chatTelegramENV  = "TELEGRAM_CHAT_ID"
	databaseDSN      = "DATABASE_DSN"
)

type BinanceConfig struct {
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`
	APISecret  string  `mapstructure:"api_secret" yaml:"api_secret"`
	Testnet    bool    `mapstructure:"testnet" yaml:"testnet"`
	RPS        float64 `mapstructure:"rps" yaml:"rps"`
	Burst      int     `mapstructure:"burst" yaml:"burst"`
	MarkStream bool    `mapstructure:"mark_stream" yaml:"mark_stream"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

type ServiceConfig struct {
	AdminPort int `mapstructure:"admin_port" yaml:"admin_port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

// Strategy - параметры единственной стратегии. Дефолты - LONG с отложенной проверкой прибыли.
type Strategy struct {
	Side                   models.Side `mapstructure:"side" yaml:"side"`
	QuoteAsset             string      `mapstructure:"quote_asset" yaml:"quote_asset"`
	FundingRateThreshold   float64     `mapstructure:"funding_rate_threshold" yaml:"funding_rate_threshold"`
	RequireNegativeFunding bool        `mapstructure:"require_negative_funding" yaml:"require_negative_funding"`

	InvestmentUSD float64 `mapstructure:"investment_usd" yaml:"investment_usd"`
	Leverage      int     `mapstructure:"leverage" yaml:"leverage"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct float64 `mapstructure:"take_profit_pct" yaml:"take_profit_pct"`
	MakerFee      float64 `mapstructure:"maker_fee" yaml:"maker_fee"`
	TakerFee      float64 `mapstructure:"taker_fee" yaml:"taker_fee"`
	TopN          int     `mapstructure:"top_n" yaml:"top_n"`

	EntryPolicy      models.EntryTimingPolicy `mapstructure:"entry_policy" yaml:"entry_policy"`
	EntryWindow      time.Duration            `mapstructure:"entry_window" yaml:"entry_window"`
	ExitPolicy       models.ExitPolicy        `mapstructure:"exit_policy" yaml:"exit_policy"`
	ProfitCheckDelay time.Duration            `mapstructure:"profit_check_delay" yaml:"profit_check_delay"`
	ProfitCheckRetry time.Duration            `mapstructure:"profit_check_retry" yaml:"profit_check_retry"`
	PollInterval     time.Duration            `mapstructure:"poll_interval" yaml:"poll_interval"`

	// false - только пишем в лог, что бы открыли
	ExecuteTrades bool `mapstructure:"execute_trades" yaml:"execute_trades"`

	// доля объёма позиции, ниже которой позиция считается закрытой
	PositionZeroTolerance float64 `mapstructure:"position_zero_tolerance" yaml:"position_zero_tolerance"`
	// допуск по объёму при поиске закрывающей сделки
	FillQtyTolerance float64       `mapstructure:"fill_qty_tolerance" yaml:"fill_qty_tolerance"`
	FillLookback     time.Duration `mapstructure:"fill_lookback" yaml:"fill_lookback"`
	FillLimit        int           `mapstructure:"fill_limit" yaml:"fill_limit"`

	VerifySymbols []string `mapstructure:"verify_symbols" yaml:"verify_symbols"`
}

type Config struct {
	Binance  BinanceConfig  `mapstructure:"binance" yaml:"binance"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	DB       string         `mapstructure:"db_dsn" yaml:"db_dsn"`
	Service  ServiceConfig  `mapstructure:"service" yaml:"service"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Strategy Strategy       `mapstructure:"strategy" yaml:"strategy"`
}

func Default() Config {
	return Config{
		Binance: BinanceConfig{
			RPS:        10,
			Burst:      5,
			MarkStream: true,
		},
		Service: ServiceConfig{AdminPort: 8080},
		Log:     LogConfig{Level: "info"},
		Tracing: TracingConfig{Host: "localhost", Port: 6831},
		Strategy: Strategy{
			Side:                   models.SideLong,
			QuoteAsset:             "USDT",
			FundingRateThreshold:   -0.001,
			RequireNegativeFunding: true,
			InvestmentUSD:          300,
			Leverage:               10,
			StopLossPct:            0.007,
			TakeProfitPct:          0.03,
			MakerFee:               0.0002,
			TakerFee:               0.0005,
			TopN:                   10,
			EntryPolicy:            models.EntryPreFunding,
			EntryWindow:            10 * time.Second,
			ExitPolicy:             models.ExitProfitCheck,
			ProfitCheckDelay:       10 * time.Second,
			ProfitCheckRetry:       2 * time.Second,
			PollInterval:           10 * time.Second,
			PositionZeroTolerance:  0.01,
			FillQtyTolerance:       0.005,
			FillLookback:           5 * time.Second,
			FillLimit:              10,
		},
	}
}

// NewConfig читает configs/$CONFIG_FILE (или values_local.yaml).
func NewConfig() (*Config, error) {
	return Load("")
}

// Load: дефолты -> .env -> yaml -> переменные окружения -> Validate.
// Пустой path - файл из CONFIG_FILE, его отсутствие не ошибка.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		name := os.Getenv(configFilePathENV)
		if name == "" {
			name = defaultConfigFile
		}
		path = filepath.Join(configDir, name)
	}

	config := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, statErr := os.Stat(path); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := v.Unmarshal(&config); err != nil {
			return nil, errors.Wrapf(err, "decode config %s", path)
		}
	} else if explicit {
		return nil, errors.Wrapf(statErr, "open config %s", path)
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyEnv(c *Config) {
	c.Binance.APIKey = getenvDefault(binanceKeyENV, c.Binance.APIKey)
	c.Binance.APISecret = getenvDefault(binanceSecretENV, c.Binance.APISecret)
	c.Binance.Testnet = boolFromEnv("BINANCE_TESTNET", c.Binance.Testnet)
	c.Telegram.Token = getenvDefault(tokenTelegramENV, c.Telegram.Token)
	c.Telegram.ChatID = int64FromEnv(chatTelegramENV, c.Telegram.ChatID)
	c.DB = getenvDefault(databaseDSN, c.DB)

	s := &c.Strategy
	s.Side = models.Side(strings.ToUpper(getenvDefault("STRATEGY_SIDE", string(s.Side))))
	s.EntryPolicy = models.EntryTimingPolicy(getenvDefault("ENTRY_POLICY", string(s.EntryPolicy)))
	s.ExitPolicy = models.ExitPolicy(getenvDefault("EXIT_POLICY", string(s.ExitPolicy)))
	s.ExecuteTrades = boolFromEnv("EXECUTE_TRADES", s.ExecuteTrades)
	s.InvestmentUSD = floatFromEnv("INVESTMENT_USD", s.InvestmentUSD)
	s.Leverage = intFromEnv("LEVERAGE", s.Leverage)
	s.TopN = intFromEnv("TOP_N", s.TopN)
	s.PollInterval = durationFromEnv("POLL_INTERVAL", s.PollInterval)
	s.EntryWindow = durationFromEnv("ENTRY_WINDOW", s.EntryWindow)
}

func (c *Config) Validate() error {
	s := c.Strategy
	switch {
	case !s.Side.Valid():
		return fmt.Errorf("config: strategy.side must be LONG or SHORT, got %q", s.Side)
	case !s.EntryPolicy.Valid():
		return fmt.Errorf("config: unknown strategy.entry_policy %q", s.EntryPolicy)
	case !s.ExitPolicy.Valid():
		return fmt.Errorf("config: unknown strategy.exit_policy %q", s.ExitPolicy)
	case s.InvestmentUSD <= 0:
		return fmt.Errorf("config: strategy.investment_usd must be > 0")
	case s.Leverage < 1 || s.Leverage > 125:
		return fmt.Errorf("config: strategy.leverage must be in 1..125, got %d", s.Leverage)
	case s.StopLossPct <= 0 || s.StopLossPct >= 1:
		return fmt.Errorf("config: strategy.stop_loss_pct must be in (0,1), got %v", s.StopLossPct)
	case s.TakeProfitPct < 0 || s.TakeProfitPct >= 1:
		return fmt.Errorf("config: strategy.take_profit_pct must be in [0,1), got %v", s.TakeProfitPct)
	case s.ExitPolicy == models.ExitFixedTPSL && s.TakeProfitPct == 0:
		return fmt.Errorf("config: fixed_tp_sl exit needs strategy.take_profit_pct")
	case s.TopN < 1:
		return fmt.Errorf("config: strategy.top_n must be >= 1")
	case s.PollInterval <= 0:
		return fmt.Errorf("config: strategy.poll_interval must be > 0")
	case s.EntryWindow < 0 || s.ProfitCheckDelay < 0 || s.FillLookback < 0:
		return fmt.Errorf("config: strategy durations must not be negative")
	case s.EntryPolicy != models.EntryImmediate && s.EntryWindow == 0:
		return fmt.Errorf("config: strategy.entry_window must be > 0 for %s entry", s.EntryPolicy)
	case s.ProfitCheckRetry <= 0:
		return fmt.Errorf("config: strategy.profit_check_retry must be > 0")
	case s.PositionZeroTolerance < 0 || s.FillQtyTolerance < 0:
		return fmt.Errorf("config: strategy tolerances must not be negative")
	case s.ExecuteTrades && (c.Binance.APIKey == "" || c.Binance.APISecret == ""):
		return fmt.Errorf("config: execute_trades needs %s and %s", binanceKeyENV, binanceSecretENV)
	}
	return nil
}

// Params для ранжирования и расчёта метрик.
func (s Strategy) Params() strategy.Params {
	tp := s.TakeProfitPct
	if s.ExitPolicy != models.ExitFixedTPSL {
		tp = 0
	}
	return strategy.Params{
		Side:                   s.Side,
		QuoteAsset:             s.QuoteAsset,
		FundingRateThreshold:   s.FundingRateThreshold,
		RequireNegativeFunding: s.RequireNegativeFunding,
		InvestmentUSD:          s.InvestmentUSD,
		Leverage:               s.Leverage,
		StopLossPct:            s.StopLossPct,
		TakeProfitPct:          tp,
		MakerFee:               s.MakerFee,
		TakerFee:               s.TakerFee,
		TopN:                   s.TopN,
	}
}

// Dump - итоговый конфиг в yaml для стартового лога, секреты скрыты.
func (c *Config) Dump() string {
	cp := *c
	cp.Binance.APIKey = mask(cp.Binance.APIKey)
	cp.Binance.APISecret = mask(cp.Binance.APISecret)
	cp.Telegram.Token = mask(cp.Telegram.Token)
	if cp.DB != "" {
		cp.DB = "***"
	}
	bs, err := yaml.Marshal(cp)
	if err != nil {
		return fmt.Sprintf("<dump error: %v>", err)
	}
	return string(bs)
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "***"
	}
	return s[:4] + "***"
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
