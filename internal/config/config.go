package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"drugmap/internal/catalog"
)

type Config struct {
	DBPath    string
	OutputDir string
	InboxDir  string

	LogLevel  string
	LogFormat string

	SettingsFile         string
	NonOrphanPreference  string
	VocabularyPreference string

	ResolveWorkers      int
	ListenerIntervalSec int
}

// settingsFile is the optional YAML overlay named by SETTINGS_FILE.
type settingsFile struct {
	NonOrphanIngredientsPreference string `yaml:"non_orphan_ingredients_preference"`
	VocabularyPreference           string `yaml:"vocabulary_preference"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "vocab.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		InboxDir:  getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		SettingsFile:         getEnv("SETTINGS_FILE", ""),
		NonOrphanPreference:  getEnv("NON_ORPHAN_INGREDIENTS_PREFERENCE", "No"),
		VocabularyPreference: getEnv("VOCABULARY_PREFERENCE", "None"),

		ResolveWorkers:      getEnvInt("RESOLVE_WORKERS", 4),
		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 60),
	}
	if cfg.ResolveWorkers < 1 {
		cfg.ResolveWorkers = 1
	}

	if cfg.SettingsFile != "" {
		if err := cfg.applySettingsFile(cfg.SettingsFile); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c *Config) applySettingsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	var sf settingsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	if v := strings.TrimSpace(sf.NonOrphanIngredientsPreference); v != "" {
		c.NonOrphanPreference = v
	}
	if v := strings.TrimSpace(sf.VocabularyPreference); v != "" {
		c.VocabularyPreference = v
	}
	return nil
}

// Settings is the scoring preference snapshot for the engine.
func (c Config) Settings() catalog.Settings {
	return catalog.ParseSettings(c.NonOrphanPreference, c.VocabularyPreference)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required value: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
