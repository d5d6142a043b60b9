package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, url string, batch int) *Resolver {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "secret")
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	r, err := NewResolver(Config{BaseURL: url, APIKeyEnv: "TEST_EMBED_KEY", Model: "m", BatchSize: batch}, logrus.NewEntry(log))
	require.NoError(t, err)
	return r
}

func TestNewResolverRequiresKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY_EMPTY", "")
	_, err := NewResolver(Config{APIKeyEnv: "TEST_EMBED_KEY_EMPTY"}, logrus.NewEntry(logrus.New()))
	assert.Error(t, err)
}

func TestPrefetchBatchesAndOrdersByIndex(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		// reply in reverse order to exercise index placement
		data := make([]item, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float64{float64(len(body.Input[i])), 1}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, 2)
	fetched, err := r.Prefetch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, fetched.Len())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.Dimension())
	assert.True(t, r.Contains("bb"))
	assert.Equal(t, []float64{3, 1}, []float64(r.Vector("ccc")))
}

func TestPrefetchOllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2],[3,4]]}`))
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, 8)
	fetched, err := r.Prefetch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, []float64(fetched.Vector("y")))
}

func TestPrefetchRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5]}]}`))
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, 8)
	_, err := r.Prefetch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, r.Contains("x"))
}

func TestPrefetchClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, 8)
	_, err := r.Prefetch(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestPrefetchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, 8)
	_, err := r.Prefetch(context.Background(), []string{"x", "y"})
	assert.Error(t, err)
}

func TestRetryDelayCapped(t *testing.T) {
	assert.Equal(t, retryDelay(0)*2, retryDelay(1))
	assert.Equal(t, retryDelay(10), retryDelay(20))
}
