package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tortuosity/internal/domain"
	"tortuosity/internal/embedding"
)

// Resolver embeds single tokens with an OpenAI-compatible embeddings endpoint.
// Every prefetched token resolves; lookups are served from the fetched table.
type Resolver struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	client     *http.Client
	maxRetries int
	log        *logrus.Entry

	mu    sync.RWMutex
	cache *embedding.Table
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	BatchSize int
	Timeout   time.Duration
}

// NewResolver creates a new embeddings client using the provided configuration.
func NewResolver(cfg Config, log *logrus.Entry) (*Resolver, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Resolver{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
		log:        log.WithFields(logrus.Fields{"component": "openai", "model": cfg.Model}),
		cache:      embedding.NewTable(0),
	}, nil
}

// Prefetch embeds tokens in batches into a new table.
func (c *Resolver) Prefetch(ctx context.Context, tokens []string) (domain.SizedResolver, error) {
	fetched := embedding.NewTable(0)
	for start := 0; start < len(tokens); start += c.batchSize {
		end := min(start+c.batchSize, len(tokens))
		batch := tokens[start:end]
		vecs, err := c.embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(vecs), len(batch))
		}
		for i, tok := range batch {
			if err := fetched.Add(tok, vecs[i]); err != nil {
				return nil, err
			}
		}
		c.log.WithFields(logrus.Fields{"embedded": end, "total": len(tokens)}).Debug("embedded batch")
	}
	c.mu.Lock()
	c.cache = fetched
	c.mu.Unlock()
	return fetched, nil
}

func (c *Resolver) latest() *embedding.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

func (c *Resolver) Contains(token string) bool { return c.latest().Contains(token) }

func (c *Resolver) Vector(token string) domain.Vector { return c.latest().Vector(token) }

func (c *Resolver) Len() int { return c.latest().Len() }

func (c *Resolver) Dimension() int { return c.latest().Dimension() }

func (c *Resolver) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	type reqBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	data, err := json.Marshal(reqBody{Input: inputs, Model: c.model})
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			// Respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				delay = time.Duration(secs) * time.Second
			}
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				c.log.WithFields(logrus.Fields{"status": resp.StatusCode, "attempt": attempt}).Warn("retrying embeddings request")
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return decodeEmbeddings(payload)
	}
	return nil, errors.New("no embedding returned")
}

// decodeEmbeddings accepts the OpenAI shape and the Ollama /api/embed shape.
func decodeEmbeddings(payload []byte) ([][]float64, error) {
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 {
		out := make([][]float64, len(openaiOut.Data))
		for _, d := range openaiOut.Data {
			if d.Index < 0 || d.Index >= len(out) {
				return nil, fmt.Errorf("embedding index %d out of range", d.Index)
			}
			out[d.Index] = d.Embedding
		}
		return out, nil
	}
	var ollamaOut struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embeddings) > 0 {
		return ollamaOut.Embeddings, nil
	}
	return nil, errors.New("no embedding returned")
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
