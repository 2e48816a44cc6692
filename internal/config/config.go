package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "FlexyEarn"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultInitDataMaxAge  = 24 * time.Hour
	defaultSessionIdleTTL  = 30 * time.Minute
	defaultAdPostbackTTL   = 10 * time.Minute
	defaultTelegramTimeout = 10 * time.Second
	defaultRateLimit       = 30
	defaultAMQPExchange    = "flexyearn.events"
	defaultPayoutCurrency  = "DZD"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Ad delivery modes.
const (
	AdModeClient   = "client"
	AdModePostback = "postback"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	AMQPURL        string
	AMQPExchange   string
	CORSOrigins    string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	SessionIdleTTL time.Duration
	RateLimit      int

	Telegram Telegram
	Ads      Ads
	Payout   Payout
	Rules    Rules
}

// Telegram holds bot and Mini App settings.
type Telegram struct {
	BotToken       string
	OperatorChatID int64
	APIEndpoint    string
	VerifyInitData bool
	InitDataMaxAge time.Duration
	DevFallback    bool
	RequestTimeout time.Duration
}

// Ads selects how rewarded-ad completion is confirmed.
type Ads struct {
	Mode           string
	PostbackSecret string
	PostbackTTL    time.Duration
}

// Payout describes the points to currency conversion shown to operators.
type Payout struct {
	PointsPerUnit int64
	UnitAmount    string
	Currency      string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", defaultAMQPExchange),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		Telegram: Telegram{
			BotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
			APIEndpoint: os.Getenv("TELEGRAM_API_ENDPOINT"),
		},
		Ads: Ads{
			Mode:           strings.ToLower(getEnv("AD_MODE", AdModeClient)),
			PostbackSecret: os.Getenv("AD_POSTBACK_SECRET"),
		},
		Payout: Payout{
			UnitAmount: getEnv("PAYOUT_UNIT_AMOUNT", "100"),
			Currency:   getEnv("PAYOUT_CURRENCY", defaultPayoutCurrency),
		},
		Rules: DefaultRules(),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = durationFromEnv("", "SESSION_IDLE_TTL", defaultSessionIdleTTL); err != nil {
		return Config{}, err
	}
	if cfg.Telegram.InitDataMaxAge, err = durationFromEnv("", "INIT_DATA_MAX_AGE", defaultInitDataMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.Telegram.RequestTimeout, err = durationFromEnv("", "TELEGRAM_TIMEOUT", defaultTelegramTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Ads.PostbackTTL, err = durationFromEnv("", "AD_POSTBACK_TTL", defaultAdPostbackTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = intFromEnv("RATE_LIMIT_PER_MINUTE", defaultRateLimit); err != nil {
		return Config{}, err
	}
	perUnit, err := intFromEnv("PAYOUT_POINTS_PER_UNIT", int(cfg.Rules.MinWithdrawal))
	if err != nil {
		return Config{}, err
	}
	cfg.Payout.PointsPerUnit = int64(perUnit)

	if v := os.Getenv("TELEGRAM_OPERATOR_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_OPERATOR_CHAT_ID: %w", err)
		}
		cfg.Telegram.OperatorChatID = id
	}

	dev := cfg.IsDev()
	if cfg.Telegram.VerifyInitData, err = boolFromEnv("VERIFY_INIT_DATA", !dev); err != nil {
		return Config{}, err
	}
	if cfg.Telegram.DevFallback, err = boolFromEnv("DEV_IDENTITY_FALLBACK", dev); err != nil {
		return Config{}, err
	}

	if path := os.Getenv("RULES_FILE"); path != "" {
		rules, err := LoadRules(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Rules = rules
		if os.Getenv("PAYOUT_POINTS_PER_UNIT") == "" {
			cfg.Payout.PointsPerUnit = rules.MinWithdrawal
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Ads.Mode {
	case AdModeClient:
	case AdModePostback:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when AD_MODE=%s", AdModePostback)
		}
		if c.Ads.PostbackSecret == "" {
			return fmt.Errorf("AD_POSTBACK_SECRET must be set when AD_MODE=%s", AdModePostback)
		}
	default:
		return fmt.Errorf("invalid AD_MODE %q", c.Ads.Mode)
	}

	if c.Telegram.VerifyInitData && c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN must be set when VERIFY_INIT_DATA is enabled")
	}

	if c.Payout.PointsPerUnit <= 0 {
		return fmt.Errorf("PAYOUT_POINTS_PER_UNIT must be positive")
	}

	if c.IsDev() {
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if c.Telegram.BotToken == "" || c.Telegram.OperatorChatID == 0 {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_OPERATOR_CHAT_ID must be set")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
