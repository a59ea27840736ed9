// Package fetch issues the scraper's HTTP requests. It wraps a synchronous
// colly collector: one GET with the fixed identifying User-Agent and a hard
// timeout, returning raw markup or a classified transport error. It never
// touches the disk; persisting failures is the caller's job.
package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/briaclm/allocine-scraper/config"
)

// Client performs single-page fetches against the target site. Get is safe
// for concurrent use: every call clones the collector, so parallel pipeline
// runs fetch independently over the shared transport.
type Client struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
}

// NewClient builds a fetch client configured from cfg.
func NewClient(cfg *config.Config) *Client {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Client{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
	}
}

// WithTransport swaps the underlying transport, used by tests to inject a
// mock round tripper.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Get fetches one page and returns its raw markup. The error, when non-nil,
// is one of the typed transport errors from this package. Each call runs on
// its own collector clone; the clones share the transport and the metrics.
func (c *Client) Get(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	collector := c.collector.Clone()

	var (
		start    time.Time
		body     string
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		start = time.Now()
		c.Metrics.IncRequest("started")
	})
	collector.OnResponse(func(r *colly.Response) {
		c.Metrics.ObserveDuration(time.Since(start))
		body = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		classified := classifyError(err, statusCode)
		c.Metrics.IncError(errorTypeLabel(classified))
		fetchErr = classified
	})

	visitErr := collector.Visit(pageURL)
	collector.Wait()

	// In synchronous mode Visit surfaces the same failure OnError already
	// classified with its status code; prefer the classified error.
	if fetchErr != nil {
		return "", fetchErr
	}
	if visitErr != nil {
		classified := classifyError(visitErr, 0)
		c.Metrics.IncError(errorTypeLabel(classified))
		return "", classified
	}
	c.Metrics.IncPages()
	return body, nil
}
