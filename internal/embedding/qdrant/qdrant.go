package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tortuosity/internal/domain"
	"tortuosity/internal/embedding"
)

// tokenNamespace derives stable point ids so a token can be fetched without a
// payload filter.
var tokenNamespace = uuid.MustParse("6f1c4a52-8d0e-4b8e-9a51-2f4f6e0b7c3d")

// PointID returns the Qdrant point id used for token.
func PointID(token string) string {
	return uuid.NewSHA1(tokenNamespace, []byte(token)).String()
}

// Resolver is a minimal REST client to a Qdrant collection holding one point
// per token. Lookups are served from the vectors of the latest Prefetch.
type Resolver struct {
	url        string
	apiKey     string
	collection string
	distance   string
	batchSize  int
	client     *http.Client
	log        *logrus.Entry

	mu    sync.RWMutex
	cache *embedding.Table
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	BatchSize  int
	Timeout    time.Duration
}

func NewResolver(cfg Config, log *logrus.Entry) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	return &Resolver{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		distance:   cfg.Distance,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: timeout},
		log:        log.WithField("component", "qdrant"),
		cache:      embedding.NewTable(0),
	}
}

// Prefetch loads the vectors of the given tokens into a new table. Tokens
// absent from the collection stay unresolved.
func (s *Resolver) Prefetch(ctx context.Context, tokens []string) (domain.SizedResolver, error) {
	fetched := embedding.NewTable(0)
	for start := 0; start < len(tokens); start += s.batchSize {
		end := min(start+s.batchSize, len(tokens))
		ids := make([]string, 0, end-start)
		for _, tok := range tokens[start:end] {
			ids = append(ids, PointID(tok))
		}
		req := map[string]any{
			"ids":          ids,
			"with_payload": true,
			"with_vector":  true,
		}
		var resp struct {
			Result []struct {
				Payload map[string]any `json:"payload"`
				Vector  []float64      `json:"vector"`
			} `json:"result"`
		}
		if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points", s.url, s.collection), req, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Result {
			tok, ok := r.Payload["token"].(string)
			if !ok || len(r.Vector) == 0 {
				continue
			}
			if err := fetched.Add(tok, r.Vector); err != nil {
				return nil, err
			}
		}
	}
	s.mu.Lock()
	s.cache = fetched
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"requested": len(tokens), "found": fetched.Len()}).Info("prefetched vectors")
	return fetched, nil
}

func (s *Resolver) latest() *embedding.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

func (s *Resolver) Contains(token string) bool { return s.latest().Contains(token) }

func (s *Resolver) Vector(token string) domain.Vector { return s.latest().Vector(token) }

func (s *Resolver) Len() int { return s.latest().Len() }

func (s *Resolver) Dimension() int { return s.latest().Dimension() }

// Init creates the collection for vectors of the given dimension. An existing
// collection is left untouched.
func (s *Resolver) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return nil
	}
	return err
}

// Import uploads every vector of table into the collection.
func (s *Resolver) Import(ctx context.Context, table *embedding.Table) error {
	if err := s.Init(ctx, table.Dimension()); err != nil {
		return err
	}
	tokens := table.Tokens()
	for start := 0; start < len(tokens); start += s.batchSize {
		end := min(start+s.batchSize, len(tokens))
		points := make([]map[string]any, 0, end-start)
		for _, tok := range tokens[start:end] {
			points = append(points, map[string]any{
				"id":      PointID(tok),
				"vector":  table.Vector(tok),
				"payload": map[string]any{"token": tok},
			})
		}
		body := map[string]any{"points": points}
		if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{"uploaded": end, "total": len(tokens)}).Debug("upserted batch")
	}
	return nil
}

// Clear drops the collection.
func (s *Resolver) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &statusError{method: http.MethodDelete, url: req.URL.String(), code: resp.StatusCode, status: resp.Status}
	}
	return nil
}

type statusError struct {
	method string
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func (s *Resolver) putJSON(ctx context.Context, url string, body any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *Resolver) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Resolver) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
