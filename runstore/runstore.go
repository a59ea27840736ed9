// Package runstore owns the on-disk artifact model: one timestamped directory
// per pipeline run, deterministic artifact names, and the shared latest-run
// pointer file.
package runstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// LatestRunFile is the pointer file under the data root naming the most
// recently created run directory.
const LatestRunFile = "latest_run.txt"

// RunIDLayout formats run timestamps at second resolution.
const RunIDLayout = "2006-01-02T15-04-05"

var (
	unsafeRunRe = regexp.MustCompile(`[^0-9A-Za-z-]+`)
	shwtDateRe  = regexp.MustCompile(`shwt_date=(\d{4}-\d{2}-\d{2})`)
)

// RunContext identifies one run's directory and naming policy. It is threaded
// explicitly through the pipeline instead of living in package globals.
type RunContext struct {
	Root string
	ID   string
	Dir  string
}

// New creates the timestamped run directory under root and best-effort
// overwrites the latest-run pointer. A pointer write failure is logged and
// swallowed; it must not abort the run.
func New(root string, now time.Time) (*RunContext, error) {
	id := now.Format(RunIDLayout)
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory %q: %w", dir, err)
	}

	pointer := filepath.Join(root, LatestRunFile)
	if err := os.WriteFile(pointer, []byte(id), 0o644); err != nil {
		slog.Error("latest run pointer write failed", slog.Any("error", err))
	}

	return &RunContext{Root: root, ID: id, Dir: dir}, nil
}

// Sanitize maps arbitrary text to a filename-safe token: every run of
// characters outside [0-9A-Za-z-] becomes a single underscore, leading and
// trailing underscores are trimmed, and empty input maps to "unknown".
func Sanitize(s string) string {
	safe := strings.Trim(unsafeRunRe.ReplaceAllString(s, "_"), "_")
	if safe == "" {
		return "unknown"
	}
	return safe
}

// HTMLName returns the page snapshot artifact name.
func HTMLName(salle, date string) string {
	return fmt.Sprintf("allocine_%s_all_seances_%s.html", Sanitize(salle), date)
}

// PageJSONName returns the page-level JSON artifact name (same stem as the
// HTML snapshot).
func PageJSONName(salle, date string) string {
	return strings.TrimSuffix(HTMLName(salle, date), ".html") + ".json"
}

// FilmJSONName returns the per-film JSON artifact name.
func FilmJSONName(film, salle string) string {
	return fmt.Sprintf("%s_data_by_%s_by_allocine.json", Sanitize(film), Sanitize(salle))
}

// ErrorName returns the error artifact name for a known venue.
func ErrorName(salle string) string {
	return Sanitize(salle) + "_error.txt"
}

// RequestErrorName is the error artifact used when the transport failed
// before a venue name was known.
const RequestErrorName = "request_error.txt"

// WriteText writes a text artifact into the run directory.
func (rc *RunContext) WriteText(name, content string) error {
	path := filepath.Join(rc.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write artifact %q: %w", name, err)
	}
	return nil
}

// WriteJSON marshals v with indentation and writes it into the run directory.
func (rc *RunContext) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact %q: %w", name, err)
	}
	return rc.WriteText(name, string(data))
}

// SalleFromURL falls back to the last path segment of the listing URL when no
// better venue name is available.
func SalleFromURL(listURL string) string {
	parsed, err := url.Parse(listURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// ShowtimeDate resolves the crawl date: a shwt_date fragment in the listing
// URL wins, else today.
func ShowtimeDate(listURL string, now time.Time) string {
	parsed, err := url.Parse(listURL)
	if err == nil {
		if m := shwtDateRe.FindStringSubmatch(parsed.Fragment); m != nil {
			return m[1]
		}
	}
	return now.Format("2006-01-02")
}

// ErrNoPointer reports a missing latest-run pointer file.
type ErrNoPointer struct {
	Path string
}

func (e ErrNoPointer) Error() string {
	return fmt.Sprintf("latest run pointer %q not found", e.Path)
}

// ErrNoRunDir reports a pointer naming a run directory that no longer exists.
type ErrNoRunDir struct {
	Dir string
}

func (e ErrNoRunDir) Error() string {
	return fmt.Sprintf("run directory %q not found", e.Dir)
}

// LatestRun reads the pointer file and returns the run directory it names.
// The two failure modes stay distinct so callers can surface them separately.
func LatestRun(root string) (string, error) {
	pointer := filepath.Join(root, LatestRunFile)
	data, err := os.ReadFile(pointer)
	if err != nil {
		return "", ErrNoPointer{Path: pointer}
	}
	dir := filepath.Join(root, strings.TrimSpace(string(data)))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", ErrNoRunDir{Dir: dir}
	}
	return dir, nil
}

// FindFilmArtifact locates the per-film JSON artifact for film inside runDir:
// first files whose name starts with the sanitized film name, then any
// per-film artifact containing it. The most recently modified match wins.
// An empty return means no artifact exists.
func FindFilmArtifact(runDir, film string) string {
	safe := Sanitize(film)

	entries, err := os.ReadDir(runDir)
	if err != nil {
		return ""
	}

	var prefixed, contained []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.Contains(name, "_data_by_") || !strings.HasSuffix(name, "_by_allocine.json") {
			continue
		}
		switch {
		case strings.HasPrefix(name, safe):
			prefixed = append(prefixed, name)
		case strings.Contains(name, safe):
			contained = append(contained, name)
		}
	}

	candidates := prefixed
	if len(candidates) == 0 {
		candidates = contained
	}
	if len(candidates) == 0 {
		return ""
	}

	newest := ""
	var newestMod time.Time
	for _, name := range candidates {
		info, err := os.Stat(filepath.Join(runDir, name))
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = name
			newestMod = info.ModTime()
		}
	}
	return filepath.Join(runDir, newest)
}
