// Package server exposes the scrape pipeline behind a minimal HTTP gateway:
// one JSON API route, static file serving, and a Prometheus metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/briaclm/allocine-scraper/config"
	"github.com/briaclm/allocine-scraper/models"
	"github.com/briaclm/allocine-scraper/pipeline"
	"github.com/briaclm/allocine-scraper/runstore"
)

// Runner starts one pipeline run. Satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*models.RunResult, error)
}

// Server handles /api/scrape requests. Each inbound request launches one full
// pipeline run as a bounded synchronous unit of work.
type Server struct {
	cfg    *config.Config
	runner Runner
	mux    *http.ServeMux
}

// New wires the gateway routes. registry, when non-nil, is exposed on
// /metrics.
func New(cfg *config.Config, runner Runner, registry *prometheus.Registry) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/scrape", s.handleScrape)
	if registry != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	s.mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	scrapeURL := query.Get("url")
	film := query.Get("film")
	salleName := query.Get("salle_name")

	if scrapeURL == "" || film == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "url and film parameters required",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ScrapeTimeout)
	defer cancel()

	result, err := s.runWithDeadline(ctx, pipeline.Request{
		URL:       scrapeURL,
		Film:      film,
		SalleName: salleName,
	})
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scrape timeout",
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "scrape failed",
			"stdout": "",
			"stderr": err.Error(),
		})
		return
	}

	runDir, lookupErr := s.locateRunDir(result)
	if lookupErr != nil {
		var noPointer runstore.ErrNoPointer
		if errors.As(lookupErr, &noPointer) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "latest_run.txt not found",
			})
			return
		}
		var noDir runstore.ErrNoRunDir
		if errors.As(lookupErr, &noDir) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "run dir not found",
				"run_dir": noDir.Dir,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": lookupErr.Error(),
		})
		return
	}

	artifact := runstore.FindFilmArtifact(runDir, film)
	if artifact == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  "film file not found",
			"search": runstore.Sanitize(film),
		})
		return
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "film file not readable",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// runWithDeadline drives one pipeline run and gives up when ctx expires.
// A timed-out run is abandoned, not terminated: its goroutine may still land
// artifacts after the caller has reported failure.
func (s *Server) runWithDeadline(ctx context.Context, req pipeline.Request) (*models.RunResult, error) {
	type outcome struct {
		result *models.RunResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.runner.Run(ctx, req)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}

// locateRunDir prefers the run directory carried by the pipeline result and
// falls back to the shared latest-run pointer only when that directory is
// gone. The fallback keeps the pointer's documented failure modes reachable.
func (s *Server) locateRunDir(result *models.RunResult) (string, error) {
	if result != nil && result.RunDir != "" {
		if info, err := os.Stat(result.RunDir); err == nil && info.IsDir() {
			return result.RunDir, nil
		}
	}
	return runstore.LatestRun(s.cfg.DataRoot)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("response encode failed", slog.Any("error", err))
	}
}

// ListenAndServe runs the gateway until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", slog.Any("error", err))
		}
	}()

	slog.Info("gateway listening", slog.String("addr", s.cfg.ListenAddr))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
