package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for detection, annotation and analysis.
// Values come from an optional YAML file; CLI flags and environment override them.
type Config struct {
	BackendURL  string        `yaml:"backend_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	SweepDelay  time.Duration `yaml:"sweep_delay"`
	DBPath      string        `yaml:"db_path"`
	ListenAddr  string        `yaml:"listen_addr"`
	KeywordsMax int           `yaml:"keywords_max"`

	Extraction ExtractionConfig `yaml:"extraction"`
	Annotation AnnotationConfig `yaml:"annotation"`
}

// ExtractionConfig tunes the quote extractor.
type ExtractionConfig struct {
	Patterns      string `yaml:"patterns"` // e.g. "curly,straight" or "curly,straight,single"
	MinLength     int    `yaml:"min_length"`
	MaxLength     int    `yaml:"max_length"`
	PreviewLength int    `yaml:"preview_length"`
}

// AnnotationConfig selects which parts of the tree are annotated, in order.
type AnnotationConfig struct {
	HeadlineSelector string `yaml:"headline_selector"`
	BodySelector     string `yaml:"body_selector"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		BackendURL:  "http://localhost:8000",
		HTTPTimeout: 120 * time.Second,
		DBPath:      "quote-origin.db",
		ListenAddr:  "127.0.0.1:8765",
		KeywordsMax: 10,
		Extraction: ExtractionConfig{
			Patterns:      "curly,straight",
			MinLength:     10,
			MaxLength:     500,
			PreviewLength: 100,
		},
		Annotation: AnnotationConfig{
			HeadlineSelector: "h1, [itemprop=headline], .headline",
			BodySelector:     "article, [itemprop=articleBody], main",
		},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
