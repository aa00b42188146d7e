package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.General.BatchSize != 8 {
		t.Errorf("BatchSize = %d, want 8", cfg.General.BatchSize)
	}
	if cfg.General.MaxParallelGenerations != 4 {
		t.Errorf("MaxParallelGenerations = %d, want 4", cfg.General.MaxParallelGenerations)
	}
	if cfg.General.AvgSecondsPerItem != 30 {
		t.Errorf("AvgSecondsPerItem = %d, want 30", cfg.General.AvgSecondsPerItem)
	}
	if cfg.General.CleanupOnCancel {
		t.Error("CleanupOnCancel should default to false")
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Web.Host = %q, want 127.0.0.1", cfg.Web.Host)
	}
}

func TestLoad_FromFile(t *testing.T) {
	content := `
[general]
database_path = "/test/taskforge.db"
batch_size = 4
cleanup_on_cancel = true

[generation]
model = "claude-opus-4-20250514"

[web]
port = 9000

[[schedule]]
goal = "goal-1"
cron = "0 6 * * *"
notify_on_complete = true
`
	path := writeTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.DatabasePath != "/test/taskforge.db" {
		t.Errorf("DatabasePath = %q, want /test/taskforge.db", cfg.General.DatabasePath)
	}
	if cfg.General.BatchSize != 4 {
		t.Errorf("BatchSize = %d, want 4", cfg.General.BatchSize)
	}
	if !cfg.General.CleanupOnCancel {
		t.Error("CleanupOnCancel should be true")
	}
	if cfg.Generation.Model != "claude-opus-4-20250514" {
		t.Errorf("Model = %q", cfg.Generation.Model)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Web.Port = %d, want 9000", cfg.Web.Port)
	}
	if len(cfg.Schedules) != 1 {
		t.Fatalf("Schedules = %d, want 1", len(cfg.Schedules))
	}
	if cfg.Schedules[0].Goal != "goal-1" || !cfg.Schedules[0].NotifyOnComplete {
		t.Errorf("schedule = %+v", cfg.Schedules[0])
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.BatchSize != 8 {
		t.Errorf("BatchSize = %d, want default 8", cfg.General.BatchSize)
	}
}

func TestLoad_InvalidSchedule(t *testing.T) {
	content := `
[[schedule]]
goal = "goal-1"
cron = "not a cron expression"
`
	path := writeTempConfig(t, content)

	if _, err := Load(path); err == nil {
		t.Error("Load should reject an invalid cron expression")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.General.BatchSize = 16
	cfg.Notifications.SlackWebhook = "https://hooks.slack.com/services/x"

	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.General.BatchSize != 16 {
		t.Errorf("BatchSize = %d, want 16", loaded.General.BatchSize)
	}
	if loaded.Notifications.SlackWebhook != cfg.Notifications.SlackWebhook {
		t.Errorf("SlackWebhook = %q", loaded.Notifications.SlackWebhook)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeTempConfig(t, "[general]\nbatch_size = 4\n")

	var mu sync.Mutex
	var got *Config
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 20 * time.Millisecond
	defer w.Stop()

	w.Start(context.Background())

	if err := os.WriteFile(path, []byte("[general]\nbatch_size = 12\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		cfg := got
		mu.Unlock()
		if cfg != nil {
			if cfg.General.BatchSize != 12 {
				t.Errorf("reloaded BatchSize = %d, want 12", cfg.General.BatchSize)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never delivered the reloaded config")
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
