// Package crawl discovers additional listing pages behind a pagination widget
// and drives the fetcher across them, sequentially and politely.
package crawl

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/briaclm/allocine-scraper/extract"
	"github.com/briaclm/allocine-scraper/models"
)

// HardPageCap bounds the crawl regardless of what the pagination claims.
const HardPageCap = 30

var pageParamRe = regexp.MustCompile(`[?&]page=(\d+)`)

// Fetcher is the single-page GET primitive the crawler drives.
type Fetcher interface {
	Get(ctx context.Context, pageURL string) (string, error)
}

// Stats counts the crawl's page-level outcomes.
type Stats struct {
	PagesFetched int
	PagesFailed  int
}

// Crawler walks listing pages 2..N with a fixed courtesy delay before each
// fetch. One page failing is logged and skipped; it never aborts the crawl.
type Crawler struct {
	fetcher Fetcher
	delay   time.Duration
	cap     int
	visited *lru.Cache[string, struct{}]
}

// New builds a crawler. maxPages caps the crawl in addition to HardPageCap.
func New(fetcher Fetcher, delay time.Duration, maxPages int) *Crawler {
	if maxPages <= 0 || maxPages > HardPageCap {
		maxPages = HardPageCap
	}
	visited, _ := lru.New[string, struct{}](64)
	return &Crawler{
		fetcher: fetcher,
		delay:   delay,
		cap:     maxPages,
		visited: visited,
	}
}

// MaxPage inspects the pagination container and returns the highest page
// number referenced by a page= query parameter, or 1 when there is none.
func MaxPage(doc *goquery.Document) int {
	container := extract.FindFirst(doc.Selection, extract.ClassContains("pagination-item-holder"))
	if container == nil {
		return 1
	}

	maxPage := 1
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := pageParamRe.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
				maxPage = n
			}
		}
	})
	return maxPage
}

// Crawl fetches the extra listing pages referenced by the pagination widget,
// in ascending page order, and returns their film cards. Pagination links
// found on fetched pages extend the worklist, so sliding pagination windows
// are followed; the visited cache drops the repeats those widgets produce.
func (c *Crawler) Crawl(ctx context.Context, doc *goquery.Document, listURL, baseURL string) ([]*models.FilmCard, Stats) {
	var films []*models.FilmCard
	var stats Stats

	pending := harvestPages(doc)
	if len(pending) == 0 {
		return films, stats
	}
	slog.Info("pagination detected",
		slog.Int("max_page", MaxPage(doc)),
		slog.Int("cap", c.cap),
	)

	for i := 0; i < len(pending); i++ {
		page := pending[i]
		if page > c.cap {
			continue
		}
		pageURL := PageURL(listURL, page)
		if _, seen := c.visited.Get(pageURL); seen {
			continue
		}
		c.visited.Add(pageURL, struct{}{})

		time.Sleep(c.delay)

		body, err := c.fetcher.Get(ctx, pageURL)
		if err != nil {
			stats.PagesFailed++
			slog.Error("page fetch failed",
				slog.Int("page", page),
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			continue
		}
		stats.PagesFetched++

		pageDoc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			stats.PagesFailed++
			slog.Error("page parse failed", slog.Int("page", page), slog.Any("error", err))
			continue
		}
		films = append(films, extract.Cards(pageDoc, baseURL)...)
		pending = append(pending, harvestPages(pageDoc)...)
	}

	return films, stats
}

// harvestPages collects the page numbers referenced by pagination links, in
// ascending order. Page 1 is the page being parsed and is excluded; repeats
// from multiple widgets on the same page are kept and left to the visited
// cache.
func harvestPages(doc *goquery.Document) []int {
	var pages []int
	for _, container := range extract.FindAll(doc.Selection, extract.ClassContains("pagination-item-holder")) {
		container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if m := pageParamRe.FindStringSubmatch(href); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n >= 2 {
					pages = append(pages, n)
				}
			}
		})
	}
	sort.Ints(pages)
	return pages
}

// PageURL rebuilds the listing URL for a given page number, keeping only
// scheme, host and path of the original listing URL.
func PageURL(listURL string, page int) string {
	parsed, err := url.Parse(listURL)
	if err != nil {
		return listURL
	}
	stripped := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: parsed.Path}
	return stripped.String() + "?page=" + strconv.Itoa(page)
}
