package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults, plus an optional
// YAML config file overlay (see config_file.go).
//
// Environment Variables:
// External Tools:
// - YTDLP_PATH: yt-dlp executable (default: yt-dlp)
// - WHISPER_CPP_PATH: whisper.cpp executable (default: whisper.cpp)
// - WHISPER_MODEL_PATH: Whisper model file (default: ./models/ggml-base.en.bin)
// - LLAMA_CPP_PATH: llama.cpp executable used for summaries (default: llama-cli)
// - LLAMA_MODEL_PATH: local LLM model file for summaries (optional)
//
// Output:
// - OUTPUT_DIR: default transcript output directory (default: .)
// - AUDIO_FORMAT: audio container requested from yt-dlp (default: m4a)
// - LANGUAGE: transcription language hint, BCP 47 / ISO 639-1 (default: auto-detect)
//
// Summary:
// - SUMMARY_MAX_PROMPT_CHARS: transcript length ceiling fed to the LLM (default: 12000)
// - SUMMARY_MAX_TOKENS: summary generation budget (default: 500)
// - SUMMARY_TEMPERATURE: sampling temperature (default: 0.7)
// - SUMMARY_TOP_P: nucleus sampling (default: 0.9)
//
// History:
// - HISTORY_DB: SQLite history database path (default: ~/.config/ytscript/history.db)
// - HISTORY_RETENTION_DAYS: prune entries older than N days, 0 keeps forever (default: 0)
// - HISTORY_PRUNE_CRON: prune schedule in serve mode (default: 0 3 * * *)
//
// Server:
// - SERVER_ADDR: HTTP listen address for serve mode (default: 127.0.0.1:8637)
// - UI_DIR: static GUI assets directory (optional)
// - SERVER_LOG_FILE: log file for serve mode (optional, stderr if unset)
//
// System:
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	Tools   ToolsConfig   `json:"tools"`
	Output  OutputConfig  `json:"output"`
	Summary SummaryConfig `json:"summary"`
	History HistoryConfig `json:"history"`
	Server  ServerConfig  `json:"server"`

	LogLevel string `json:"log_level"`
}

// ToolsConfig holds paths to the external binaries the pipeline shells out to.
type ToolsConfig struct {
	YtdlpPath        string `json:"ytdlp_path"`
	WhisperPath      string `json:"whisper_path"`
	WhisperModelPath string `json:"whisper_model_path"`
	LlamaPath        string `json:"llama_path"`
	LlamaModelPath   string `json:"llama_model_path"`
}

// OutputConfig holds defaults for where and how run artifacts are written.
type OutputConfig struct {
	Dir         string `json:"dir"`
	AudioFormat string `json:"audio_format"`
	Language    string `json:"language"`
}

// SummaryConfig holds the llama.cpp sampling knobs and the prompt length budget.
type SummaryConfig struct {
	MaxPromptChars int     `json:"max_prompt_chars"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
}

// HistoryConfig holds history database location and retention policy.
type HistoryConfig struct {
	DBPath        string `json:"db_path"`
	RetentionDays int    `json:"retention_days"`
	PruneCronExpr string `json:"prune_cron_expr"`
}

// ServerConfig holds the serve-mode HTTP settings.
type ServerConfig struct {
	Addr    string `json:"addr"`
	UIDir   string `json:"ui_dir"`
	LogFile string `json:"log_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config from environment variables, an optional YAML
// config file, and options, in that order of precedence (last wins).
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Tools: ToolsConfig{
			YtdlpPath:        getEnvString("YTDLP_PATH", "yt-dlp"),
			WhisperPath:      getEnvString("WHISPER_CPP_PATH", "whisper.cpp"),
			WhisperModelPath: getEnvString("WHISPER_MODEL_PATH", "./models/ggml-base.en.bin"),
			LlamaPath:        getEnvString("LLAMA_CPP_PATH", "llama-cli"),
			LlamaModelPath:   getEnvString("LLAMA_MODEL_PATH", ""),
		},
		Output: OutputConfig{
			Dir:         getEnvString("OUTPUT_DIR", "."),
			AudioFormat: getEnvString("AUDIO_FORMAT", "m4a"),
			Language:    getEnvString("LANGUAGE", ""),
		},
		Summary: SummaryConfig{
			MaxPromptChars: getEnvInt("SUMMARY_MAX_PROMPT_CHARS", 12000),
			MaxTokens:      getEnvInt("SUMMARY_MAX_TOKENS", 500),
			Temperature:    getEnvFloat("SUMMARY_TEMPERATURE", 0.7),
			TopP:           getEnvFloat("SUMMARY_TOP_P", 0.9),
		},
		History: HistoryConfig{
			DBPath:        getEnvString("HISTORY_DB", defaultHistoryDBPath()),
			RetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 0),
			PruneCronExpr: getEnvString("HISTORY_PRUNE_CRON", "0 3 * * *"),
		},
		Server: ServerConfig{
			Addr:    getEnvString("SERVER_ADDR", "127.0.0.1:8637"),
			UIDir:   getEnvString("UI_DIR", ""),
			LogFile: getEnvString("SERVER_LOG_FILE", ""),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	if err := applyConfigFile(config); err != nil {
		return nil, err
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.Tools.YtdlpPath) == "" {
		return fmt.Errorf("YTDLP_PATH is required")
	}
	if strings.TrimSpace(c.Tools.WhisperPath) == "" {
		return fmt.Errorf("WHISPER_CPP_PATH is required")
	}
	if strings.TrimSpace(c.Tools.WhisperModelPath) == "" {
		return fmt.Errorf("WHISPER_MODEL_PATH is required")
	}
	if lang := strings.TrimSpace(c.Output.Language); lang != "" && !strings.EqualFold(lang, "auto") {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("invalid LANGUAGE %q: %w", lang, err)
		}
	}
	if c.Summary.MaxPromptChars <= 0 {
		return fmt.Errorf("SUMMARY_MAX_PROMPT_CHARS must be positive")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must not be negative")
	}
	if expr := strings.TrimSpace(c.History.PruneCronExpr); expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid HISTORY_PRUNE_CRON: %w", err)
		}
	}
	return nil
}

func defaultHistoryDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".config", "ytscript", "history.db")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
