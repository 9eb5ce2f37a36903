package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds overrides read from the environment. Unset variables stay nil.
type EnvConfig struct {
	Questions *int    `env:"JYUTDRILL_QUESTIONS"`
	Feedback  *bool   `env:"JYUTDRILL_FEEDBACK"`
	Mode      *string `env:"JYUTDRILL_RANGE_MODE"`
	Count     *int    `env:"JYUTDRILL_COUNT"`
	Start     *int    `env:"JYUTDRILL_START"`
	End       *int    `env:"JYUTDRILL_END"`
	FocusWeak *bool   `env:"JYUTDRILL_FOCUS_WEAK"`
	DataDir   *string `env:"JYUTDRILL_DATA_DIR"`
	DBPath    *string `env:"JYUTDRILL_DB"`
	LogLevel  *string `env:"JYUTDRILL_LOG_LEVEL"`
	LogFile   *string `env:"JYUTDRILL_LOG_FILE"`
}

// ParseEnv loads overrides from environment variables.
func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load reads the TOML file at path and overlays the environment on top.
func Load(path string) (FileConfig, error) {
	fileCfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	envCfg, err := ParseEnv()
	if err != nil {
		return FileConfig{}, err
	}
	return fileCfg.Overlay(envCfg), nil
}

// Overlay returns c with every value set in e replacing the file value.
func (c FileConfig) Overlay(e EnvConfig) FileConfig {
	overlay(&c.Practice.Questions, e.Questions)
	overlay(&c.Practice.Feedback, e.Feedback)
	overlay(&c.Practice.Mode, e.Mode)
	overlay(&c.Practice.Count, e.Count)
	overlay(&c.Practice.Start, e.Start)
	overlay(&c.Practice.End, e.End)
	overlay(&c.Practice.FocusWeak, e.FocusWeak)
	overlay(&c.Data.Dir, e.DataDir)
	overlay(&c.Data.DB, e.DBPath)
	overlay(&c.Log.Level, e.LogLevel)
	overlay(&c.Log.File, e.LogFile)
	return c
}

func overlay[T any](target **T, value *T) {
	if value != nil {
		*target = value
	}
}
