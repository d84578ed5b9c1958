package config

import (
	"errors"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	engineOnce   sync.Once
	engineConfig *EngineConfig
)

// EngineConfig holds the extraction/search/chat tunables. Values come from
// engine.yaml when present, otherwise defaults apply.
type EngineConfig struct {
	// Extraction
	MinPageConfidence float64 `yaml:"min_page_confidence"`
	OCRRetries        int     `yaml:"ocr_retries"`
	PageWorkers       int     `yaml:"page_workers"`

	// Normalization
	MaxPassageLen int `yaml:"max_passage_len"`
	MinPassageLen int `yaml:"min_passage_len"`

	// Retrieval
	TopK           int `yaml:"top_k"`
	PerDocumentCap int `yaml:"per_document_cap"`

	// Generation
	OllamaEndpoint string        `yaml:"ollama_endpoint"`
	OllamaModel    string        `yaml:"ollama_model"`
	GenTimeout     time.Duration `yaml:"gen_timeout"`
}

func defaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinPageConfidence: 0.60,
		OCRRetries:        2,
		PageWorkers:       4,
		MaxPassageLen:     600,
		MinPassageLen:     24,
		TopK:              5,
		PerDocumentCap:    2,
		OllamaEndpoint:    "http://localhost:11434",
		OllamaModel:       "gemma3:1b",
		GenTimeout:        60 * time.Second,
	}
}

// GetEngineConfig loads engine.yaml once; a missing file yields defaults.
func GetEngineConfig() *EngineConfig {
	engineOnce.Do(func() {
		cfg, err := LoadEngineConfig("engine.yaml")
		if err != nil {
			cfg = defaultEngineConfig()
		}
		engineConfig = cfg
	})
	return engineConfig
}

// LoadEngineConfig reads tunables from the given yaml path. A missing file
// is not an error; defaults are returned.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := defaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 4
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxPassageLen <= cfg.MinPassageLen {
		cfg.MaxPassageLen = cfg.MinPassageLen + 1
	}
	return cfg, nil
}
