package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	SessionTTL        time.Duration
	Location          *time.Location
	PeriodsFile       string
	ReconcileSchedule string
	RedisAddr         string
	KafkaBrokers      []string
	KafkaTopic        string
	LoginRatePerMin   int
	LogLevel          string
}

const (
	defaultTimezone          = "Asia/Tokyo"
	defaultReconcileSchedule = "*/15 * * * *"
)

// Load parses configuration values from the current process environment.
//
// Missing required variables are reported before invalid ones, both with
// Japanese messages listing the variable names.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SessionTTL:        24 * time.Hour,
		ReconcileSchedule: defaultReconcileSchedule,
		LoginRatePerMin:   10,
		LogLevel:          "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := env("RESERVATION_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "RESERVATION_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("RESERVATION_SQLITE_DSN"); dsn == "" {
		missing = append(missing, "RESERVATION_SQLITE_DSN")
	} else {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := env("RESERVATION_SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVATION_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	tz := env("RESERVATION_TIMEZONE")
	if tz == "" {
		tz = defaultTimezone
	}
	if loc, err := loadLocation(tz); err != nil {
		invalid = append(invalid, "RESERVATION_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if path := env("RESERVATION_PERIODS_FILE"); path != "" {
		if _, err := os.Stat(path); err != nil {
			invalid = append(invalid, "RESERVATION_PERIODS_FILE")
		} else {
			cfg.PeriodsFile = path
		}
	}

	if spec := env("RESERVATION_RECONCILE_SCHEDULE"); spec != "" {
		if strings.EqualFold(spec, "off") {
			cfg.ReconcileSchedule = "off"
		} else if _, err := cron.ParseStandard(spec); err != nil {
			invalid = append(invalid, "RESERVATION_RECONCILE_SCHEDULE")
		} else {
			cfg.ReconcileSchedule = spec
		}
	}

	cfg.RedisAddr = env("RESERVATION_REDIS_ADDR")

	if brokers := env("RESERVATION_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
		cfg.KafkaTopic = env("RESERVATION_KAFKA_TOPIC")
		if cfg.KafkaTopic == "" {
			missing = append(missing, "RESERVATION_KAFKA_TOPIC")
		}
	}

	if rateValue := env("RESERVATION_LOGIN_RATE"); rateValue != "" {
		rate, err := strconv.Atoi(rateValue)
		if err != nil || rate < 0 {
			invalid = append(invalid, "RESERVATION_LOGIN_RATE")
		} else {
			cfg.LoginRatePerMin = rate
		}
	}

	if level := strings.ToLower(env("RESERVATION_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "RESERVATION_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// loadLocation falls back to a fixed +09:00 zone for Asia/Tokyo when the
// host has no zoneinfo database.
func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == defaultTimezone {
		return time.FixedZone("JST", 9*60*60), nil
	}
	return nil, err
}
