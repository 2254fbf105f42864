package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lolwatch/internal/config"
	"lolwatch/internal/health"
	"lolwatch/internal/notifier"
	"lolwatch/internal/riot"
	"lolwatch/internal/sweeper"
	"lolwatch/internal/tracker"
	kit "lolwatch/internal/transport"
	telegram "lolwatch/internal/transport/telegram/adapter"
	logx "lolwatch/pkg/logx"
)

func mapAdapterConfig(cfg *config.Config) (telegram.Config, error) {
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return telegram.Config{}, fmt.Errorf("telegram.token is required")
	}
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, nil
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (tracker.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	dsn := strings.TrimSpace(sc.DSN)

	switch driver {
	case "", "sqlite", "sqlite3":
		if path == "" {
			return tracker.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return tracker.Config{}, err
		}
		return tracker.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	case "file":
		if path == "" {
			return tracker.Config{}, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return tracker.Config{Driver: driver, Path: path}, nil
	case "postgres", "postgresql":
		if dsn == "" {
			return tracker.Config{}, fmt.Errorf("storage.dsn is required when storage.driver=postgres")
		}
		return tracker.Config{Driver: driver, DSN: dsn}, nil
	case "memory":
		return tracker.Config{Driver: driver}, nil
	default:
		return tracker.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapRiotConfig(cfg *config.Config) (riot.Config, error) {
	if strings.TrimSpace(cfg.Riot.APIKey) == "" {
		return riot.Config{}, fmt.Errorf("riot.api_key is required")
	}
	if strings.TrimSpace(cfg.Riot.Platform) == "" {
		return riot.Config{}, fmt.Errorf("riot.platform is required")
	}
	if strings.TrimSpace(cfg.Riot.Region) == "" {
		return riot.Config{}, fmt.Errorf("riot.region is required")
	}
	reqTimeout, err := config.ParseDurationOrDefault("riot.request_timeout", cfg.Riot.RequestTimeout, 10*time.Second)
	if err != nil {
		return riot.Config{}, err
	}
	if cfg.Riot.RetryMax < 0 {
		return riot.Config{}, fmt.Errorf("riot.retry_max must be >= 0")
	}
	return riot.Config{
		APIKey:         cfg.Riot.APIKey,
		Platform:       strings.TrimSpace(cfg.Riot.Platform),
		Region:         strings.TrimSpace(cfg.Riot.Region),
		RequestTimeout: reqTimeout,
		RetryMax:       cfg.Riot.RetryMax,
	}, nil
}

func mapPollInterval(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("riot.poll_interval", cfg.Riot.PollInterval, riot.DefaultPollInterval)
}

func mapSweeperConfig(cfg *config.Config) (sweeper.Config, error) {
	out := sweeper.Config{Enabled: cfg.Sweeper.Enabled}
	if raw := strings.TrimSpace(cfg.Sweeper.Schedule); raw != "" {
		sched, err := sweeper.ParseSchedule(raw)
		if err != nil {
			return sweeper.Config{}, fmt.Errorf("sweeper.schedule: %w", err)
		}
		out.Schedule = sched
	}
	threshold, err := config.ParseDurationOrDefault("sweeper.threshold", cfg.Sweeper.Threshold, 0)
	if err != nil {
		return sweeper.Config{}, err
	}
	out.Threshold = threshold
	return out, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	if cfg.Notifier.RatePerSec < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	sendTimeout, err := config.ParseDurationOrDefault("notifier.send_timeout", cfg.Notifier.SendTimeout, 0)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		RatePerSec:  cfg.Notifier.RatePerSec,
		SendTimeout: sendTimeout,
	}, nil
}

func mapHealthConfig(cfg *config.Config) (health.Config, error) {
	read, err := config.ParseDurationOrDefault("health.read_timeout", cfg.Health.ReadTimeout, 5*time.Second)
	if err != nil {
		return health.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("health.write_timeout", cfg.Health.WriteTimeout, 10*time.Second)
	if err != nil {
		return health.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("health.idle_timeout", cfg.Health.IdleTimeout, time.Minute)
	if err != nil {
		return health.Config{}, err
	}
	return health.Config{
		Enabled:      cfg.Health.Enabled,
		Addr:         cfg.Health.Addr,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}

// parseChatTarget parses telegram.group_chat, either "chatID" or
// "chatID:threadID" for forum topics.
func parseChatTarget(raw string) (kit.ChatTarget, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return kit.ChatTarget{}, false
	}
	chatPart, threadPart, hasThread := strings.Cut(raw, ":")
	chatID, err := strconv.ParseInt(strings.TrimSpace(chatPart), 10, 64)
	if err != nil {
		return kit.ChatTarget{}, false
	}
	target := kit.ChatTarget{ChatID: chatID}
	if hasThread {
		tid, err := strconv.Atoi(strings.TrimSpace(threadPart))
		if err != nil {
			return kit.ChatTarget{}, false
		}
		target.ThreadID = tid
	}
	return target, true
}
