package config

// Config is the full on-disk configuration.
//
// All duration fields are Go duration strings (e.g. "500ms", "10s", "1m").
// The file may be YAML or JSON; YAML is coerced through strict JSON decoding
// so unknown keys are rejected in both formats.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Riot     RiotConfig     `json:"riot"`
	Tracker  TrackerConfig  `json:"tracker"`
	Sweeper  SweeperConfig  `json:"sweeper"`
	Notifier NotifierConfig `json:"notifier"`
	Storage  StorageConfig  `json:"storage"`
	Health   HealthConfig   `json:"health,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupChat is the chat that receives registrations and threshold nags.
	GroupChat string `json:"group_chat"`
	// PollTimeout is the long-poll timeout, e.g. "10s".
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// RiotConfig controls the presence poller against the Riot API.
type RiotConfig struct {
	APIKey string `json:"api_key"`
	// Platform is the platform routing value for spectator lookups, e.g. "jp1", "euw1".
	Platform string `json:"platform"`
	// Region is the regional routing value for account lookups, e.g. "asia", "europe".
	Region string `json:"region"`
	// PollInterval is how often each registered player is probed (default "1m").
	PollInterval string `json:"poll_interval,omitempty"`
	// RequestTimeout bounds a single API call (default "10s").
	RequestTimeout string `json:"request_timeout,omitempty"`
	// RetryMax is the per-request retry budget (default 2).
	RetryMax int `json:"retry_max,omitempty"`
}

// TrackerConfig controls activity classification.
type TrackerConfig struct {
	// Aliases is the case-insensitive allow-list of activity names that count
	// as the target activity. Defaults to the League of Legends aliases.
	Aliases []string `json:"aliases,omitempty"`
}

// SweeperConfig controls the periodic inactivity sweep.
type SweeperConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule accepts a cron expression ("*/10 * * * *"), or a duration ("10m").
	// Default "10m".
	Schedule string `json:"schedule,omitempty"`
	// Threshold is the inactivity window after which a player is nagged
	// once per episode. Default "24h".
	Threshold string `json:"threshold,omitempty"`
}

// NotifierConfig controls outbound message delivery.
type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// SendTimeout bounds a single delivery (default "10s").
	SendTimeout string `json:"send_timeout,omitempty"`
}

// StorageConfig selects the activity store backend.
//
// Driver values: "sqlite" (path), "file" (path), "postgres" (dsn), "memory".
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// HealthConfig controls the HTTP health/metrics listener.
type HealthConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "0.0.0.0:8000"

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
