package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with pointer fields so absent keys leave the
// env-derived value untouched.
type fileConfig struct {
	Tools struct {
		YtdlpPath        *string `yaml:"ytdlp_path"`
		WhisperPath      *string `yaml:"whisper_path"`
		WhisperModelPath *string `yaml:"whisper_model_path"`
		LlamaPath        *string `yaml:"llama_path"`
		LlamaModelPath   *string `yaml:"llama_model_path"`
	} `yaml:"tools"`
	Output struct {
		Dir         *string `yaml:"dir"`
		AudioFormat *string `yaml:"audio_format"`
		Language    *string `yaml:"language"`
	} `yaml:"output"`
	Summary struct {
		MaxPromptChars *int     `yaml:"max_prompt_chars"`
		MaxTokens      *int     `yaml:"max_tokens"`
		Temperature    *float64 `yaml:"temperature"`
		TopP           *float64 `yaml:"top_p"`
	} `yaml:"summary"`
	History struct {
		DBPath        *string `yaml:"db_path"`
		RetentionDays *int    `yaml:"retention_days"`
		PruneCronExpr *string `yaml:"prune_cron"`
	} `yaml:"history"`
	Server struct {
		Addr    *string `yaml:"addr"`
		UIDir   *string `yaml:"ui_dir"`
		LogFile *string `yaml:"log_file"`
	} `yaml:"server"`
	LogLevel *string `yaml:"log_level"`
}

// configFilePaths lists candidate config file locations in order of preference.
func configFilePaths() []string {
	paths := make([]string, 0, 3)
	if explicit := os.Getenv("YTSCRIPT_CONFIG"); explicit != "" {
		paths = append(paths, explicit)
	}
	paths = append(paths, "config.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ytscript", "config.yaml"))
	}
	return paths
}

// applyConfigFile overlays the first readable config file onto cfg.
// A missing file is not an error; a malformed one is.
func applyConfigFile(cfg *Config) error {
	for _, path := range configFilePaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read config file %s: %w", path, err)
		}

		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		fc.applyTo(cfg)
		return nil
	}
	return nil
}

func (fc fileConfig) applyTo(cfg *Config) {
	setString(&cfg.Tools.YtdlpPath, fc.Tools.YtdlpPath)
	setString(&cfg.Tools.WhisperPath, fc.Tools.WhisperPath)
	setString(&cfg.Tools.WhisperModelPath, fc.Tools.WhisperModelPath)
	setString(&cfg.Tools.LlamaPath, fc.Tools.LlamaPath)
	setString(&cfg.Tools.LlamaModelPath, fc.Tools.LlamaModelPath)

	setString(&cfg.Output.Dir, fc.Output.Dir)
	setString(&cfg.Output.AudioFormat, fc.Output.AudioFormat)
	setString(&cfg.Output.Language, fc.Output.Language)

	setInt(&cfg.Summary.MaxPromptChars, fc.Summary.MaxPromptChars)
	setInt(&cfg.Summary.MaxTokens, fc.Summary.MaxTokens)
	setFloat(&cfg.Summary.Temperature, fc.Summary.Temperature)
	setFloat(&cfg.Summary.TopP, fc.Summary.TopP)

	setString(&cfg.History.DBPath, fc.History.DBPath)
	setInt(&cfg.History.RetentionDays, fc.History.RetentionDays)
	setString(&cfg.History.PruneCronExpr, fc.History.PruneCronExpr)

	setString(&cfg.Server.Addr, fc.Server.Addr)
	setString(&cfg.Server.UIDir, fc.Server.UIDir)
	setString(&cfg.Server.LogFile, fc.Server.LogFile)

	setString(&cfg.LogLevel, fc.LogLevel)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
