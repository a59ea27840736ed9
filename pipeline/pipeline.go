// Package pipeline wires fetch, extraction, crawling and the run store into
// one synchronous scrape invocation. Everything happens in strict sequence on
// the calling goroutine; the only suspension points are the network fetches
// and the fixed inter-page delay.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/briaclm/allocine-scraper/config"
	"github.com/briaclm/allocine-scraper/crawl"
	"github.com/briaclm/allocine-scraper/extract"
	"github.com/briaclm/allocine-scraper/fetch"
	"github.com/briaclm/allocine-scraper/models"
	"github.com/briaclm/allocine-scraper/runstore"
)

// Request describes one scrape invocation.
type Request struct {
	URL       string
	Film      string
	SalleName string
}

// Pipeline owns the collaborators of one or more runs. A zero delay or page
// cap falls back to the configured defaults.
type Pipeline struct {
	cfg     *config.Config
	fetcher crawl.Fetcher
	now     func() time.Time
}

// Option adjusts a Pipeline, mainly for tests.
type Option func(*Pipeline)

// WithFetcher swaps the page fetcher.
func WithFetcher(f crawl.Fetcher) Option {
	return func(p *Pipeline) {
		p.fetcher = f
	}
}

// WithClock swaps the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New builds a pipeline from cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = fetch.NewClient(cfg)
	}
	return p
}

// Run executes one full scrape: fetch page 1, resolve venue and date, write
// the HTML snapshot, extract cards, crawl extra pages, write the page JSON,
// and, when a film was requested, match its showtimes and write the per-film
// JSON. The returned RunResult carries the run directory so callers need not
// consult the latest-run pointer.
func (p *Pipeline) Run(ctx context.Context, req Request) (*models.RunResult, error) {
	start := p.now()

	rc, err := runstore.New(p.cfg.DataRoot, start)
	if err != nil {
		return nil, err
	}
	result := &models.RunResult{
		RunID:     rc.ID,
		RunDir:    rc.Dir,
		StartTime: start,
	}

	slog.Info("run started",
		slog.String("run_id", rc.ID),
		slog.String("url", req.URL),
		slog.String("film", req.Film),
	)

	body, err := p.fetcher.Get(ctx, req.URL)
	if err != nil {
		p.writeErrorArtifact(rc, req, err)
		result.EndTime = p.now()
		return result, fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		// The body is raw bytes from the wire; a parse failure here is a
		// transport-grade problem, not an extraction miss.
		p.writeErrorArtifact(rc, req, err)
		result.EndTime = p.now()
		return result, fmt.Errorf("parse %s: %w", req.URL, err)
	}

	salle := p.resolveSalle(req, doc)
	date := runstore.ShowtimeDate(req.URL, start)
	result.SalleName = salle
	result.Date = date

	htmlName := runstore.HTMLName(salle, date)
	if err := rc.WriteText(htmlName, body); err != nil {
		result.EndTime = p.now()
		return result, err
	}
	result.HTMLFile = htmlName

	fields := extract.Page(doc)
	baseURL := siteBase(req.URL)
	films := extract.Cards(doc, baseURL)

	crawler := crawl.New(p.fetcher, p.cfg.PageDelay, p.cfg.MaxPages)
	extra, stats := crawler.Crawl(ctx, doc, req.URL, baseURL)
	films = append(films, extra...)
	result.FilmCount = len(films)
	result.PagesFetched = stats.PagesFetched + 1
	result.PagesFailed = stats.PagesFailed

	page := &models.PageResult{
		Header: models.PageHeader{
			Raw:       fields.Title,
			Synopsis:  fields.Synopsis,
			Showtimes: fields.Showtimes,
		},
		Seances: models.PageSeances{
			Date:  date,
			Films: films,
		},
		Meta: models.PageMeta{
			URL:       req.URL,
			FetchedAt: start.UTC().Format(time.RFC3339),
			HTMLFile:  htmlName,
		},
	}
	pageName := runstore.PageJSONName(salle, date)
	if err := rc.WriteJSON(pageName, page); err != nil {
		result.EndTime = p.now()
		return result, err
	}
	result.PageFile = pageName

	if req.Film != "" {
		match := extract.MatchShowtimes(doc, req.Film, req.URL)
		filmName := runstore.FilmJSONName(req.Film, salle)
		if err := rc.WriteJSON(filmName, match); err != nil {
			result.EndTime = p.now()
			return result, err
		}
		result.FilmFile = filmName
		slog.Info("film matched",
			slog.String("film", req.Film),
			slog.Bool("found", match.Found),
			slog.Int("showtimes", match.Count),
		)
	}

	result.EndTime = p.now()
	slog.Info("run finished",
		slog.String("run_id", rc.ID),
		slog.Int("films", result.FilmCount),
		slog.Int("pages", result.PagesFetched),
		slog.Duration("duration", result.Duration()),
	)
	return result, nil
}

// writeErrorArtifact persists a fatal transport failure: under the venue's
// error name when an explicit salle override made the venue known before the
// fetch, under the request-level name otherwise.
func (p *Pipeline) writeErrorArtifact(rc *runstore.RunContext, req Request, err error) {
	name := runstore.RequestErrorName
	if req.SalleName != "" {
		name = runstore.ErrorName(req.SalleName)
	}
	if werr := rc.WriteText(name, err.Error()); werr != nil {
		slog.Error("error artifact write failed", slog.Any("error", werr))
	}
}

// siteBase keeps scheme and host of the listing URL for relative link
// resolution.
func siteBase(listURL string) string {
	parsed, err := url.Parse(listURL)
	if err != nil {
		return listURL
	}
	stripped := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return stripped.String()
}

// resolveSalle applies the venue name resolution order: explicit override,
// DOM guess, last URL path segment.
func (p *Pipeline) resolveSalle(req Request, doc *goquery.Document) string {
	if req.SalleName != "" {
		return req.SalleName
	}
	if guess := extract.GuessSalleName(doc); guess != "" {
		return guess
	}
	return runstore.SalleFromURL(req.URL)
}
