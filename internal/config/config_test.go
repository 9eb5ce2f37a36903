package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing config should not fail: %v", err)
	}
	if cfg.Practice.Questions != nil || cfg.Data.Dir != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := writeConfig(t, `
[practice]
questions = 20
feedback = false
mode = "window"
start = 11
end = 40
weak-factor = 1.5

[data]
dir = "/tmp/jyut"

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := cfg.Practice
	if p.Questions == nil || *p.Questions != 20 {
		t.Fatalf("questions = %v", p.Questions)
	}
	if p.Feedback == nil || *p.Feedback {
		t.Fatalf("feedback = %v", p.Feedback)
	}
	if p.Mode == nil || *p.Mode != "window" || *p.Start != 11 || *p.End != 40 {
		t.Fatalf("unexpected range: %+v", p)
	}
	if p.Count != nil {
		t.Fatalf("absent key must stay nil")
	}
	if p.WeakFactor == nil || *p.WeakFactor != 1.5 {
		t.Fatalf("weak-factor = %v", p.WeakFactor)
	}
	if cfg.Data.Dir == nil || *cfg.Data.Dir != "/tmp/jyut" {
		t.Fatalf("data dir = %v", cfg.Data.Dir)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("log level = %v", cfg.Log.Level)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "[practice]\nwords = 5\n")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "practice.words") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestEnvOverlaysFile(t *testing.T) {
	path := writeConfig(t, "[practice]\nquestions = 20\ncount = 300\n")
	t.Setenv("JYUTDRILL_QUESTIONS", "30")
	t.Setenv("JYUTDRILL_FEEDBACK", "false")
	t.Setenv("JYUTDRILL_DATA_DIR", "/srv/data")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Practice.Questions != 30 {
		t.Fatalf("env should override file, got %d", *cfg.Practice.Questions)
	}
	if *cfg.Practice.Count != 300 {
		t.Fatalf("file value should survive, got %d", *cfg.Practice.Count)
	}
	if cfg.Practice.Feedback == nil || *cfg.Practice.Feedback {
		t.Fatalf("feedback = %v", cfg.Practice.Feedback)
	}
	if *cfg.Data.Dir != "/srv/data" {
		t.Fatalf("data dir = %q", *cfg.Data.Dir)
	}
	if cfg.Log.Level != nil {
		t.Fatalf("unset env must not set a value")
	}
}

func TestParseEnvInvalidValue(t *testing.T) {
	t.Setenv("JYUTDRILL_COUNT", "many")
	if _, err := ParseEnv(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/x/config")
	t.Setenv("XDG_DATA_HOME", "/x/data")
	t.Setenv("XDG_STATE_HOME", "/x/state")

	cases := map[string]string{
		DefaultConfigPath():     "/x/config/jyutdrill/config.toml",
		DefaultDataDir():        "/x/data/jyutdrill/data",
		DefaultDBPath():         "/x/data/jyutdrill/jyutdrill.db",
		DefaultUnihanCacheDir(): "/x/data/jyutdrill/unihan",
		DefaultLogPath():        "/x/state/jyutdrill/jyutdrill.log",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("path = %q, want %q", got, want)
		}
	}
}
