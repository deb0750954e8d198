package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings holds every configuration value of the billing binaries.
type Settings struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	Port           string `mapstructure:"PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	CronSecret     string `mapstructure:"CRON_SECRET"`

	LocalTimezone        string `mapstructure:"LOCAL_TIMEZONE"`
	ForeignTimezone      string `mapstructure:"FOREIGN_TIMEZONE"`
	EarlyFreezePlatforms string `mapstructure:"EARLY_FREEZE_PLATFORMS"`
	FreezeGraceMinutes   int    `mapstructure:"FREEZE_GRACE_MINUTES"`

	DefaultUSDCOP     float64       `mapstructure:"DEFAULT_USD_COP"`
	DefaultEURUSD     float64       `mapstructure:"DEFAULT_EUR_USD"`
	DefaultGBPUSD     float64       `mapstructure:"DEFAULT_GBP_USD"`
	RatesAPIURL       string        `mapstructure:"RATES_API_URL"`
	RatesFetchTimeout time.Duration `mapstructure:"RATES_FETCH_TIMEOUT"`
	RatesCacheTTL     time.Duration `mapstructure:"RATES_CACHE_TTL"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`

	RabbitMQHost     string `mapstructure:"RABBITMQ_HOST"`
	RabbitMQPort     string `mapstructure:"RABBITMQ_PORT"`
	RabbitMQUser     string `mapstructure:"RABBITMQ_USER"`
	RabbitMQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	ClosureModelTimeout  time.Duration `mapstructure:"CLOSURE_MODEL_TIMEOUT"`
	ClosureSchedule      string        `mapstructure:"CLOSURE_SCHEDULE"`
	EarlyFreezeSchedule  string        `mapstructure:"EARLY_FREEZE_SCHEDULE"`
	WatchdogSchedule     string        `mapstructure:"WATCHDOG_SCHEDULE"`
	RatesRefreshSchedule string        `mapstructure:"RATES_REFRESH_SCHEDULE"`
	SyncTotalsSchedule   string        `mapstructure:"SYNC_TOTALS_SCHEDULE"`

	RecalcRequestsPerSecond float64 `mapstructure:"RECALC_REQUESTS_PER_SECOND"`
	RecalcBurst             int     `mapstructure:"RECALC_BURST"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var settingKeys = []string{
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"PORT", "ALLOWED_ORIGINS", "JWT_SECRET", "CRON_SECRET",
	"LOCAL_TIMEZONE", "FOREIGN_TIMEZONE", "EARLY_FREEZE_PLATFORMS", "FREEZE_GRACE_MINUTES",
	"DEFAULT_USD_COP", "DEFAULT_EUR_USD", "DEFAULT_GBP_USD",
	"RATES_API_URL", "RATES_FETCH_TIMEOUT", "RATES_CACHE_TTL", "REDIS_ADDR",
	"RABBITMQ_HOST", "RABBITMQ_PORT", "RABBITMQ_USER", "RABBITMQ_PASSWORD",
	"CLOSURE_MODEL_TIMEOUT", "CLOSURE_SCHEDULE", "EARLY_FREEZE_SCHEDULE", "WATCHDOG_SCHEDULE",
	"RATES_REFRESH_SCHEDULE", "SYNC_TOTALS_SCHEDULE",
	"RECALC_REQUESTS_PER_SECOND", "RECALC_BURST",
	"LOG_LEVEL", "LOG_FORMAT",
}

// LoadSettings reads a local .env when present, then the environment.
func LoadSettings() (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOCAL_TIMEZONE", "America/Bogota")
	v.SetDefault("FOREIGN_TIMEZONE", "Europe/Berlin")
	v.SetDefault("FREEZE_GRACE_MINUTES", 15)
	v.SetDefault("DEFAULT_USD_COP", 3900)
	v.SetDefault("DEFAULT_EUR_USD", 1.01)
	v.SetDefault("DEFAULT_GBP_USD", 1.20)
	v.SetDefault("RATES_FETCH_TIMEOUT", "5s")
	v.SetDefault("RATES_CACHE_TTL", "5m")
	v.SetDefault("RABBITMQ_PORT", "5672")
	v.SetDefault("CLOSURE_MODEL_TIMEOUT", "30s")
	v.SetDefault("CLOSURE_SCHEDULE", "0 5 0 1,16 * *")     // 00:05 on closure days
	v.SetDefault("EARLY_FREEZE_SCHEDULE", "0 */5 * * * *") // every 5 minutes, no-op before the cutoff
	v.SetDefault("WATCHDOG_SCHEDULE", "0 30 0 1,16 * *")
	v.SetDefault("RATES_REFRESH_SCHEDULE", "0 0 */6 * * *")
	v.SetDefault("SYNC_TOTALS_SCHEDULE", "0 */30 * * * *")
	v.SetDefault("RECALC_REQUESTS_PER_SECOND", 1)
	v.SetDefault("RECALC_BURST", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.AutomaticEnv()

	for _, key := range settingKeys {
		_ = v.BindEnv(key)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values that have no usable default.
func (s *Settings) Validate() error {
	if s.DatabaseURL == "" && s.DBHost == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST must be set")
	}
	if s.FreezeGraceMinutes < 0 {
		return fmt.Errorf("FREEZE_GRACE_MINUTES must not be negative")
	}
	if s.DefaultUSDCOP <= 0 || s.DefaultEURUSD <= 0 || s.DefaultGBPUSD <= 0 {
		return fmt.Errorf("default rates must be positive")
	}
	return nil
}

// DSN returns the postgres connection string.
func (s *Settings) DSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.DBUser, s.DBPassword),
		Host:     s.DBHost + ":" + s.DBPort,
		Path:     "/" + s.DBName,
		RawQuery: "sslmode=" + s.DBSSLMode + "&TimeZone=UTC",
	}
	return u.String()
}

// RabbitMQURL returns the AMQP URL, or "" when RabbitMQ is not configured.
func (s *Settings) RabbitMQURL() string {
	if s.RabbitMQHost == "" {
		return ""
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(s.RabbitMQUser, s.RabbitMQPassword),
		Host:   s.RabbitMQHost + ":" + s.RabbitMQPort,
		Path:   "/",
	}
	return u.String()
}

// Origins splits ALLOWED_ORIGINS.
func (s *Settings) Origins() []string {
	return splitList(s.AllowedOrigins)
}

// EarlyFreezeList splits EARLY_FREEZE_PLATFORMS; nil means the built-in set.
func (s *Settings) EarlyFreezeList() []string {
	return splitList(s.EarlyFreezePlatforms)
}

// FreezeGrace is the grace period after the foreign cutoff.
func (s *Settings) FreezeGrace() time.Duration {
	return time.Duration(s.FreezeGraceMinutes) * time.Minute
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
