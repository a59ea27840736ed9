package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briaclm/allocine-scraper/config"
	"github.com/briaclm/allocine-scraper/models"
	"github.com/briaclm/allocine-scraper/pipeline"
	"github.com/briaclm/allocine-scraper/runstore"
)

type fakeRunner struct {
	result *models.RunResult
	err    error
	block  bool

	gotReq pipeline.Request
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*models.RunResult, error) {
	f.gotReq = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func newTestServer(t *testing.T, runner Runner) (*Server, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataRoot = t.TempDir()
	cfg.StaticDir = t.TempDir()
	return New(cfg, runner, nil), cfg
}

func doScrape(s *Server, rawQuery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/scrape?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestScrapeRejectsMissingParameters(t *testing.T) {
	s, _ := newTestServer(t, &fakeRunner{})

	tests := []struct {
		name  string
		query string
	}{
		{name: "no parameters", query: ""},
		{name: "url only", query: "url=https%3A%2F%2Fwww.allocine.fr%2Fseance%2Fsalle.html"},
		{name: "film only", query: "film=Vertigo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doScrape(s, tt.query)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error": "url and film parameters required"}`, rec.Body.String())
		})
	}
}

func TestScrapeTimeout(t *testing.T) {
	s, cfg := newTestServer(t, &fakeRunner{block: true})
	cfg.ScrapeTimeout = 20 * time.Millisecond

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Vertigo")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "scrape timeout"}`, rec.Body.String())
}

func TestScrapeRunFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("fetch https://example.com: connection refused")}
	s, _ := newTestServer(t, runner)

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Vertigo")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{
		"error": "scrape failed",
		"stdout": "",
		"stderr": "fetch https://example.com: connection refused"
	}`, rec.Body.String())
}

func TestScrapeNoPointerFallback(t *testing.T) {
	// Run reports success but the result carries no usable directory and the
	// data root has never seen a run.
	runner := &fakeRunner{result: &models.RunResult{}}
	s, _ := newTestServer(t, runner)

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Vertigo")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "latest_run.txt not found"}`, rec.Body.String())
}

func TestScrapeStalePointerFallback(t *testing.T) {
	runner := &fakeRunner{result: &models.RunResult{}}
	s, cfg := newTestServer(t, runner)

	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.DataRoot, runstore.LatestRunFile),
		[]byte("2025-01-01T00-00-00"), 0o644))

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Vertigo")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	stale := filepath.Join(cfg.DataRoot, "2025-01-01T00-00-00")
	assert.JSONEq(t, `{"error": "run dir not found", "run_dir": "`+stale+`"}`, rec.Body.String())
}

func TestScrapeFilmArtifactMissing(t *testing.T) {
	runDir := t.TempDir()
	runner := &fakeRunner{result: &models.RunResult{RunDir: runDir}}
	s, _ := newTestServer(t, runner)

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Film+Inexistant")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "film file not found", "search": "Film_Inexistant"}`, rec.Body.String())
}

func TestScrapeReturnsArtifactVerbatim(t *testing.T) {
	runDir := t.TempDir()
	artifact := `{
  "found": true,
  "film": "Vertigo",
  "count": 1
}`
	require.NoError(t, os.WriteFile(
		filepath.Join(runDir, "Vertigo_data_by_Salle_A_by_allocine.json"),
		[]byte(artifact), 0o644))

	runner := &fakeRunner{result: &models.RunResult{RunDir: runDir}}
	s, _ := newTestServer(t, runner)

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Vertigo&salle_name=Salle+A")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, artifact, rec.Body.String())

	assert.Equal(t, "Vertigo", runner.gotReq.Film)
	assert.Equal(t, "Salle A", runner.gotReq.SalleName)
}

func TestScrapeFallsBackToLatestRunWhenDirGone(t *testing.T) {
	runner := &fakeRunner{result: &models.RunResult{RunDir: "/nonexistent/run"}}
	s, cfg := newTestServer(t, runner)

	rc, err := runstore.New(cfg.DataRoot, time.Now())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(
		filepath.Join(rc.Dir, "Vertigo_data_by_unknown_by_allocine.json"),
		[]byte(`{"found": false}`), 0o644))

	rec := doScrape(s, "url=https%3A%2F%2Fexample.com&film=Vertigo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"found": false}`, rec.Body.String())
}

func TestStaticFileServing(t *testing.T) {
	s, cfg := newTestServer(t, &fakeRunner{})
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.StaticDir, "index.html"),
		[]byte("<html><body>scraper</body></html>"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scraper")
}
