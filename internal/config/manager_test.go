package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "t", "owner_user_ids": [1, 2], "group_chat": "-100", "poll_timeout": "10s"},
		"riot": {"api_key": "k", "platform": "jp1", "region": "asia"},
		"sweeper": {"enabled": true, "schedule": "10m", "threshold": "24h"},
		"storage": {"driver": "sqlite", "path": "lol.db"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "t" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 {
		t.Errorf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Riot.Platform != "jp1" || cfg.Riot.Region != "asia" {
		t.Errorf("riot routing = %q/%q", cfg.Riot.Platform, cfg.Riot.Region)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Threshold != "24h" {
		t.Errorf("sweeper = %+v", cfg.Sweeper)
	}
	if got := m.Get(); got != cfg {
		t.Error("Get() should return the committed config")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
telegram:
  token: t
  owner_user_ids: [42]
  group_chat: "-1001"
riot:
  api_key: k
  platform: euw1
  region: europe
  poll_interval: 30s
storage:
  driver: file
  path: state.json
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.OwnerUserIDs[0] != 42 {
		t.Errorf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Riot.PollInterval != "30s" {
		t.Errorf("poll_interval = %q", cfg.Riot.PollInterval)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		body string
	}{
		{"unknown field", "config.json", `{"telegram": {"token": "t", "oops": 1}}`},
		{"trailing data", "config.json", `{"telegram": {"token": "t"}} {"more": true}`},
		{"bad yaml", "config.yaml", "telegram: [unclosed"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tc.file, tc.body)
			if _, err := NewManager(path).Parse(); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"10s", 10 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"-5s", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseDurationField("x", tc.raw)
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseDurationField(%q) err = %v, wantErr %v", tc.raw, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseDurationField(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}

	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Errorf("ParseDurationOrDefault empty = %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "5s", time.Minute); err != nil || d != 5*time.Second {
		t.Errorf("ParseDurationOrDefault 5s = %v, %v", d, err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{}
	oldCfg.Riot.APIKey = "a"
	oldCfg.Sweeper.Threshold = "24h"

	newCfg := &Config{}
	newCfg.Riot.APIKey = "b"
	newCfg.Sweeper.Threshold = "12h"
	newCfg.Storage.DSN = "postgres://user:secret@db/lol"

	sections, attrs := SummarizeConfigChange(oldCfg, newCfg)
	want := []string{"riot", "storage", "sweeper"}
	if len(sections) != len(want) {
		t.Fatalf("sections = %v, want %v", sections, want)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Fatalf("sections = %v, want %v", sections, want)
		}
	}
	if len(attrs) == 0 {
		t.Error("expected attrs for changed sections")
	}

	if s, _ := SummarizeConfigChange(newCfg, newCfg); len(s) != 0 {
		t.Errorf("identical configs should report no changes, got %v", s)
	}
}

func TestSubscribePublishDropsOldest(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{}
	second := &Config{}
	m.publish(first)
	m.publish(second)

	got := <-ch
	if got != second {
		t.Error("slow subscriber should receive the newest config")
	}
}
