package config

import (
	"time"
)

type ClassifierConfig struct {
	Enabled bool          `yaml:"enabled"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func loadClassifierConfig() *ClassifierConfig {
	return &ClassifierConfig{
		Enabled: getEnvAsBool("CLASSIFIER_ENABLED", true),
		APIKey:  getEnv("CLASSIFIER_API_KEY", ""),
		Model:   getEnv("CLASSIFIER_MODEL", "google/gemma-3-27b-it:free"),
		BaseURL: getEnv("CLASSIFIER_BASE_URL", "https://openrouter.ai/api/v1"),
		Timeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 20*time.Second),
	}
}
