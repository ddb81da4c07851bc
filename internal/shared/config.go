package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	PhoneCodeTTL   time.Duration
	ResendCooldown time.Duration
	LoginMaxFails  int
	LoginFailTTL   time.Duration

	DirectionsBase string
	DirectionsKey  string

	ExpandHorizonDays int
	ExpandWorkers     int
	ExpandSchedule    string // cron spec for the series expander

	CacheTTL time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/pawtrail?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		JWTSecret:  env("JWT_SECRET", ""),
		TokenTTL:   time.Duration(atoi("TOKEN_TTL_SECONDS", 86400)) * time.Second,
		BcryptCost: atoi("BCRYPT_COST", 12),

		PhoneCodeTTL:   time.Duration(atoi("PHONE_CODE_TTL_SECONDS", 300)) * time.Second,
		ResendCooldown: time.Duration(atoi("PHONE_RESEND_COOLDOWN_SECONDS", 60)) * time.Second,
		LoginMaxFails:  atoi("LOGIN_MAX_FAILS", 10),
		LoginFailTTL:   time.Duration(atoi("LOGIN_FAIL_TTL_SECONDS", 900)) * time.Second,

		DirectionsBase: env("DIRECTIONS_BASE_URL", ""),
		DirectionsKey:  env("DIRECTIONS_API_KEY", ""),

		ExpandHorizonDays: atoi("EXPAND_HORIZON_DAYS", 28),
		ExpandWorkers:     atoi("EXPAND_WORKERS", 8),
		ExpandSchedule:    env("EXPAND_SCHEDULE", "0 */2 * * *"),

		CacheTTL: time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; tokens will not survive restarts")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
