package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/config"
	"tortuosity/internal/domain"
	"tortuosity/internal/embedding/memory"
	"tortuosity/internal/embedding/openai"
	"tortuosity/internal/embedding/qdrant"
	"tortuosity/internal/logging"
	"tortuosity/internal/service"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.AppConfig
	log        *logrus.Entry
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		var cfg *config.AppConfig
		var err error
		if path == "" {
			cfg, _, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(path)
		}
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid config: %w", err)
			return
		}
		log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.log = log
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *logrus.Entry {
	if c.log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.log
}

// resolver assembles the configured embedding backend.
func (c *commandContext) resolver() (domain.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return buildResolver(cfg.Embeddings, c.logger())
}

func buildResolver(cfg config.EmbeddingsConfig, log *logrus.Entry) (domain.Resolver, error) {
	switch cfg.Type {
	case "file", "":
		if cfg.File == nil {
			return nil, fmt.Errorf("file embeddings config missing")
		}
		start := time.Now()
		table, err := memory.LoadFile(memory.Config{Path: cfg.File.Path, Limit: cfg.File.Limit})
		if err != nil {
			return nil, fmt.Errorf("load embeddings: %w", err)
		}
		log.WithFields(logrus.Fields{
			"path":        cfg.File.Path,
			"vectors":     table.Len(),
			"dimension":   table.Dimension(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("embeddings loaded")
		return table, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return newQdrant(cfg.Qdrant, log), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embeddings config missing")
		}
		return openai.NewResolver(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			BatchSize: cfg.OpenAI.BatchSize,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		}, log)
	default:
		return nil, fmt.Errorf("unknown embeddings type: %s", cfg.Type)
	}
}

func newQdrant(cfg *config.QdrantConfig, log *logrus.Entry) *qdrant.Resolver {
	return qdrant.NewResolver(qdrant.Config{
		URL:        cfg.URL,
		APIKey:     lookupEnv(cfg.APIKeyEnv),
		Collection: cfg.Collection,
		Distance:   cfg.Distance,
		BatchSize:  cfg.BatchSize,
		Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
	}, log)
}

func (c *commandContext) service() (*service.AnalysisServiceImpl, error) {
	res, err := c.resolver()
	if err != nil {
		return nil, err
	}
	return service.NewAnalysisService(res, c.config.Analysis.Workers, c.logger()), nil
}

func reportOptions(cfg config.ReportConfig) aggregate.Options {
	opts := aggregate.Options{TopN: cfg.TopN}
	for _, g := range cfg.Groups {
		opts.Groups = append(opts.Groups, aggregate.Group{Name: g.Name, From: g.From, To: g.To})
	}
	return opts
}
