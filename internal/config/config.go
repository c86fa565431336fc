package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/civicnotify/dispatch-engine/internal/schedule"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default; only DATABASE_URL is required.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	// Change detection: watermark fallback when no prior run exists is one
	// poll interval in the past.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"15m"`

	// Channel transports
	EmailBaseURL     string        `env:"EMAIL_BASE_URL"    envDefault:"http://localhost:8081/send"`
	MessageBaseURL   string        `env:"MESSAGE_BASE_URL"  envDefault:"http://localhost:8082/send"`
	TransportTimeout time.Duration `env:"TRANSPORT_TIMEOUT" envDefault:"10s"`
	RatePerChannel   int           `env:"RATE_PER_CHANNEL"  envDefault:"20"`

	// Delivery policy clocks, all evaluated in Timezone.
	Timezone        string `env:"TIMEZONE"          envDefault:"Europe/Berlin"`
	QuietHoursStart string `env:"QUIET_HOURS_START" envDefault:"21:00"`
	QuietHoursEnd   string `env:"QUIET_HOURS_END"   envDefault:"08:00"`
	DailyDigestAt   string `env:"DAILY_DIGEST_AT"   envDefault:"08:00"`
	WeeklyDigestDay string `env:"WEEKLY_DIGEST_DAY" envDefault:"Monday"`
	WeeklyDigestAt  string `env:"WEEKLY_DIGEST_AT"  envDefault:"08:00"`

	// Serve mode: cron expressions (evaluated in Timezone) and ops server.
	DispatchCron    string        `env:"DISPATCH_CRON"     envDefault:"*/15 * * * *"`
	DailyCron       string        `env:"DAILY_CRON"        envDefault:"5 8 * * *"`
	WeeklyCron      string        `env:"WEEKLY_CRON"       envDefault:"10 8 * * 1"`
	HTTPPort        string        `env:"HTTP_PORT"         envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"      envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"     envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// Schedule builds the quiet-hours/digest schedule from the configured
// clock strings and timezone.
func (c *Config) Schedule() (*schedule.Schedule, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	quietStart, err := schedule.ParseClock(c.QuietHoursStart)
	if err != nil {
		return nil, err
	}
	quietEnd, err := schedule.ParseClock(c.QuietHoursEnd)
	if err != nil {
		return nil, err
	}
	dailyAt, err := schedule.ParseClock(c.DailyDigestAt)
	if err != nil {
		return nil, err
	}
	weeklyDay, err := schedule.ParseWeekday(c.WeeklyDigestDay)
	if err != nil {
		return nil, err
	}
	weeklyAt, err := schedule.ParseClock(c.WeeklyDigestAt)
	if err != nil {
		return nil, err
	}
	return schedule.New(loc, quietStart, quietEnd, dailyAt, weeklyDay, weeklyAt), nil
}
