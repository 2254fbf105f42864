package config

import (
	"reflect"
	"sort"
	"strings"

	logx "lolwatch/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens
// or API keys).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		strings.TrimSpace(oldCfg.Telegram.GroupChat) != strings.TrimSpace(newCfg.Telegram.GroupChat) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Bool("telegram.group_chat_set", strings.TrimSpace(newCfg.Telegram.GroupChat) != ""),
		)
	}

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File != newCfg.Logging.File ||
		oldCfg.Logging.Telegram != newCfg.Logging.Telegram {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	// Riot (never log api_key; only report whether it changed)
	if (strings.TrimSpace(oldCfg.Riot.APIKey) != strings.TrimSpace(newCfg.Riot.APIKey)) ||
		strings.TrimSpace(oldCfg.Riot.Platform) != strings.TrimSpace(newCfg.Riot.Platform) ||
		strings.TrimSpace(oldCfg.Riot.Region) != strings.TrimSpace(newCfg.Riot.Region) ||
		strings.TrimSpace(oldCfg.Riot.PollInterval) != strings.TrimSpace(newCfg.Riot.PollInterval) ||
		strings.TrimSpace(oldCfg.Riot.RequestTimeout) != strings.TrimSpace(newCfg.Riot.RequestTimeout) ||
		oldCfg.Riot.RetryMax != newCfg.Riot.RetryMax {
		changed = append(changed, "riot")
		attrs = append(attrs,
			logx.String("riot.platform", strings.TrimSpace(newCfg.Riot.Platform)),
			logx.String("riot.region", strings.TrimSpace(newCfg.Riot.Region)),
			logx.String("riot.poll_interval", strings.TrimSpace(newCfg.Riot.PollInterval)),
			logx.Bool("riot.api_key_set", strings.TrimSpace(newCfg.Riot.APIKey) != ""),
		)
	}

	// Tracker
	if !reflect.DeepEqual(oldCfg.Tracker.Aliases, newCfg.Tracker.Aliases) {
		changed = append(changed, "tracker")
		attrs = append(attrs, logx.Int("tracker.alias_count", len(newCfg.Tracker.Aliases)))
	}

	// Sweeper
	if oldCfg.Sweeper != newCfg.Sweeper {
		changed = append(changed, "sweeper")
		attrs = append(attrs,
			logx.Bool("sweeper.enabled", newCfg.Sweeper.Enabled),
			logx.String("sweeper.schedule", strings.TrimSpace(newCfg.Sweeper.Schedule)),
			logx.String("sweeper.threshold", strings.TrimSpace(newCfg.Sweeper.Threshold)),
		)
	}

	// Notifier
	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.String("notifier.send_timeout", strings.TrimSpace(newCfg.Notifier.SendTimeout)),
		)
	}

	// Storage (never log DSN; it can carry credentials)
	if oldCfg.Storage.Driver != newCfg.Storage.Driver ||
		strings.TrimSpace(oldCfg.Storage.Path) != strings.TrimSpace(newCfg.Storage.Path) ||
		strings.TrimSpace(oldCfg.Storage.DSN) != strings.TrimSpace(newCfg.Storage.DSN) ||
		strings.TrimSpace(oldCfg.Storage.BusyTimeout) != strings.TrimSpace(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}

	// Health
	if oldCfg.Health != newCfg.Health {
		changed = append(changed, "health")
		attrs = append(attrs,
			logx.Bool("health.enabled", newCfg.Health.Enabled),
			logx.String("health.addr", strings.TrimSpace(newCfg.Health.Addr)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
