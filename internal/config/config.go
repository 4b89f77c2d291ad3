/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads and persists application configuration.
// Configuration is stored as YAML in the per-user config directory and can be
// overridden through SBE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	General GeneralConfig `yaml:"general"`
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
	Media   MediaConfig   `yaml:"media"`
}

// GeneralConfig holds UI-independent application settings.
type GeneralConfig struct {
	Theme          string `yaml:"theme"`
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	FontsDir       string `yaml:"fonts_dir"`
}

// LoggingConfig mirrors the log package options.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	AddSource bool   `yaml:"add_source"`
}

// ExportConfig holds still and video export defaults.
type ExportConfig struct {
	DefaultFormat string `yaml:"default_format"`
	JPEGQuality   int    `yaml:"jpeg_quality"`
	CRF           int    `yaml:"crf"`
	Preset        string `yaml:"preset"`
	FFmpegPath    string `yaml:"ffmpeg_path"`
	FFprobePath   string `yaml:"ffprobe_path"`
}

// MediaConfig tunes decoding behavior.
type MediaConfig struct {
	CacheBudgetMiB int `yaml:"cache_budget_mib"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		General: GeneralConfig{Theme: "dark"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Export: ExportConfig{
			DefaultFormat: "png",
			JPEGQuality:   90,
			CRF:           18,
			Preset:        "veryfast",
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
		},
		Media: MediaConfig{CacheBudgetMiB: 256},
	}
}

// ConfigPath returns the path of the config file for the current user.
func ConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	dir := filepath.Join(base, appDirName())
	return filepath.Join(dir, "config.yaml"), nil
}

func appDirName() string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return "BubbleEdit"
	}
	return "bubbleedit"
}

// Load reads the config file, merges it over the defaults and applies
// environment overrides. A missing file is not an error.
func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		applyEnv(&cfg)
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Save writes the configuration to the per-user config file, creating the
// directory when needed.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnv overlays SBE_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr("SBE_THEME", &cfg.General.Theme)
	setBool("SBE_TELEMETRY_OPT_IN", &cfg.General.TelemetryOptIn)
	setStr("SBE_FONTS_DIR", &cfg.General.FontsDir)

	setStr("SBE_LOG_LEVEL", &cfg.Logging.Level)
	setStr("SBE_LOG_FORMAT", &cfg.Logging.Format)
	setStr("SBE_LOG_FILE", &cfg.Logging.File)
	setBool("SBE_LOG_SOURCE", &cfg.Logging.AddSource)

	setStr("SBE_EXPORT_FORMAT", &cfg.Export.DefaultFormat)
	setInt("SBE_EXPORT_JPEG_QUALITY", &cfg.Export.JPEGQuality)
	setInt("SBE_EXPORT_CRF", &cfg.Export.CRF)
	setStr("SBE_EXPORT_PRESET", &cfg.Export.Preset)
	setStr("SBE_FFMPEG", &cfg.Export.FFmpegPath)
	setStr("SBE_FFPROBE", &cfg.Export.FFprobePath)

	setInt("SBE_CACHE_BUDGET_MIB", &cfg.Media.CacheBudgetMiB)
}
