package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileEmbeddingsConfig points at a GloVe or word2vec text file.
type FileEmbeddingsConfig struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"`
}

// OpenAIEmbeddingsConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbeddingsConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// QdrantConfig contains connection details for a Qdrant collection of word vectors.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbeddingsConfig selects and configures the embedding resolver.
type EmbeddingsConfig struct {
	Type   string                  `yaml:"type"`
	File   *FileEmbeddingsConfig   `yaml:"file,omitempty"`
	OpenAI *OpenAIEmbeddingsConfig `yaml:"openai,omitempty"`
	Qdrant *QdrantConfig           `yaml:"qdrant,omitempty"`
}

// CorpusConfig configures how input files are split into documents.
type CorpusConfig struct {
	Format        string `yaml:"format"`
	RequireHeader bool   `yaml:"require_header"`
}

// AnalysisConfig tunes the batch run.
type AnalysisConfig struct {
	Workers int `yaml:"workers"`
}

// GroupConfig names an inclusive range of document ordinals.
type GroupConfig struct {
	Name string `yaml:"name"`
	From int    `yaml:"from"`
	To   int    `yaml:"to"`
}

// ReportConfig selects the report layout.
type ReportConfig struct {
	Format string        `yaml:"format"`
	TopN   int           `yaml:"top_n"`
	Groups []GroupConfig `yaml:"groups,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./tortuosity.yaml first, then ~/.config/tortuosity/config.yaml.
// If neither exists, it writes defaults to ~/.config/tortuosity/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "tortuosity.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the selected backends have what they need.
func (c *AppConfig) Validate() error {
	switch c.Embeddings.Type {
	case "file":
		if c.Embeddings.File == nil || c.Embeddings.File.Path == "" {
			return errors.New("embeddings.file.path is required")
		}
	case "qdrant":
		if c.Embeddings.Qdrant == nil || c.Embeddings.Qdrant.URL == "" || c.Embeddings.Qdrant.Collection == "" {
			return errors.New("embeddings.qdrant.url and collection are required")
		}
	case "openai":
		if c.Embeddings.OpenAI == nil {
			return errors.New("embeddings.openai config missing")
		}
	default:
		return fmt.Errorf("unknown embeddings type: %s", c.Embeddings.Type)
	}
	switch c.Report.Format {
	case "table", "csv", "markdown", "json":
	default:
		return fmt.Errorf("unknown report format: %s", c.Report.Format)
	}
	for _, g := range c.Report.Groups {
		if g.Name == "" || g.From > g.To {
			return fmt.Errorf("invalid group %q: from %d to %d", g.Name, g.From, g.To)
		}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tortuosity", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embeddings: EmbeddingsConfig{Type: "file", File: &FileEmbeddingsConfig{Path: "vectors.txt"}},
		Corpus:     CorpusConfig{Format: "blocks"},
		Report:     ReportConfig{Format: "table", TopN: 10},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Server:     ServerConfig{Address: ":8080"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embeddings.Type == "" {
		cfg.Embeddings.Type = "file"
	}
	if cfg.Corpus.Format == "" {
		cfg.Corpus.Format = "blocks"
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = "table"
	}
	if cfg.Report.TopN == 0 {
		cfg.Report.TopN = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Embeddings.Type == "openai" && cfg.Embeddings.OpenAI != nil {
		if cfg.Embeddings.OpenAI.BaseURL == "" {
			cfg.Embeddings.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embeddings.OpenAI.APIKeyEnv == "" {
			cfg.Embeddings.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embeddings.OpenAI.Model == "" {
			cfg.Embeddings.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embeddings.OpenAI.TimeoutSecs == 0 {
			cfg.Embeddings.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embeddings.OpenAI.BatchSize == 0 {
			cfg.Embeddings.OpenAI.BatchSize = 32
		}
	}
	if cfg.Embeddings.Type == "qdrant" && cfg.Embeddings.Qdrant != nil {
		if cfg.Embeddings.Qdrant.Distance == "" {
			cfg.Embeddings.Qdrant.Distance = "Cosine"
		}
		if cfg.Embeddings.Qdrant.TimeoutSecs == 0 {
			cfg.Embeddings.Qdrant.TimeoutSecs = 15
		}
		if cfg.Embeddings.Qdrant.BatchSize == 0 {
			cfg.Embeddings.Qdrant.BatchSize = 256
		}
	}
}
