package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/domain"
	"tortuosity/internal/embedding"
	"tortuosity/internal/service"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	table := embedding.NewTable(2)
	for tok, v := range map[string]domain.Vector{
		"a": {0, 0}, "b": {1, 0}, "c": {1, 1}, "d": {2, 1},
	} {
		require.NoError(t, table.Add(tok, v))
	}
	svc := service.NewAnalysisService(table, 2, quietLog())
	return NewServer(svc, quietLog(), Options{Report: aggregate.Options{TopN: 5}})
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	rec := post(t, newTestServer(t), `{"documents":[
		{"id":"1","lines":["a b c","d"]},
		{"id":"2","lines":["a"]},
		{"id":"3"}
	],"top_n":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Batch.Results, 1)
	assert.Equal(t, "1", out.Batch.Results[0].ID)
	assert.Greater(t, out.Batch.Results[0].OverallTortuosity, 0.0)
	require.Len(t, out.Batch.Skipped, 1)
	assert.Equal(t, "2", out.Batch.Skipped[0].ID)
	require.Len(t, out.Batch.Failed, 1)
	assert.Equal(t, "3", out.Batch.Failed[0].ID)
	assert.Len(t, out.Report.Top, 1)
	assert.Equal(t, 1, out.Report.Documents)
}

func TestAnalyzeRejectsBadBodies(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{`nope`, `{}`, `{"documents":{"id":"1"}}`} {
		rec := post(t, s, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestAnalyzeBodyLimit(t *testing.T) {
	s := NewServer(nil, quietLog(), Options{MaxBodyBytes: 8})
	rec := post(t, s, `{"documents":[{"id":"1","lines":["a b c"]}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type emptyService struct{}

func (emptyService) Analyze(context.Context, []domain.Document) (domain.Batch, error) {
	return domain.Batch{}, domain.ErrNoEmbeddings
}

func TestAnalyzeWithoutEmbeddings(t *testing.T) {
	s := NewServer(emptyService{}, quietLog(), Options{})
	rec := post(t, s, `{"documents":[{"id":"1","lines":["a"]}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
