package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthpop/internal/logging"
	"synthpop/internal/metrics"
)

type fixedCensus struct {
	h, s int
	err  error
}

func (f fixedCensus) Census(context.Context) (int, int, error) { return f.h, f.s, f.err }

func init() { gin.SetMode(gin.TestMode) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	r := NewRouter(Options{Census: fixedCensus{}, Log: logging.Discard()})
	rec := get(t, r, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestStats(t *testing.T) {
	r := NewRouter(Options{Census: fixedCensus{h: 4, s: 2}, TargetRatio: 1.5, Log: logging.Discard()})
	rec := get(t, r, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4.0, body["humans"])
	assert.Equal(t, 2.0, body["synthetic"])
	assert.Equal(t, 0.5, body["ratio"])
	assert.Equal(t, 4.0, body["needed"])
}

func TestStats_StoreDown(t *testing.T) {
	r := NewRouter(Options{Census: fixedCensus{err: errors.New("dial tcp: refused")}, Log: logging.Discard()})
	rec := get(t, r, "/stats")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsAndImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o644))
	m := metrics.New()
	m.ActorsCreated(1)

	r := NewRouter(Options{Census: fixedCensus{}, Metrics: m.Handler(), ImageDir: dir, Log: logging.Discard()})

	rec := get(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "synthpop_actors_created_total 1")

	rec = get(t, r, "/images/a.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}
