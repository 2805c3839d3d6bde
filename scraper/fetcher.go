// Package scraper owns the fetch side of the sync engine: the page fetcher,
// the resumable orchestrator, the error taxonomy, and the engine metrics.
package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-catalog-sync/config"
)

// Fetcher issues page-at-a-time GET requests with browser-like headers and
// rotating user agents. Detail-page bodies are cached in a bounded LRU so
// sampling runs do not hammer the target.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	cache     *lru.Cache[string, []byte]
	metrics   *Metrics

	nextAgent uint32
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgents[0]),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
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

	cache, err := lru.New[string, []byte](cfg.DetailCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build detail cache: %w", err)
	}

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		cache:     cache,
		metrics:   metrics,
	}, nil
}

// WithTransport swaps the HTTP transport; tests inject httpmock here.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// ListPage fetches one listing page by number.
func (f *Fetcher) ListPage(ctx context.Context, page int) ([]byte, error) {
	body, err := f.fetch(ctx, f.cfg.ListPageURL(page))
	if err == nil {
		f.metrics.IncPage("list")
	}
	return body, err
}

// DetailPage fetches a detail page by external id, consulting the cache
// first. A 404 surfaces as ErrNotFound: the item no longer exists.
func (f *Fetcher) DetailPage(ctx context.Context, id string) ([]byte, error) {
	pageURL := f.cfg.DetailPageURL(id)
	if body, ok := f.cache.Get(pageURL); ok {
		return body, nil
	}
	body, err := f.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	f.metrics.IncPage("detail")
	f.cache.Add(pageURL, body)
	return body, nil
}

// FetchURL fetches an arbitrary same-domain URL; the drift monitor samples
// through it.
func (f *Fetcher) FetchURL(ctx context.Context, pageURL string) ([]byte, error) {
	body, err := f.fetch(ctx, pageURL)
	if err == nil {
		f.metrics.IncPage("sample")
	}
	return body, err
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()
	agent := f.rotateAgent()

	var body []byte
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", agent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		if f.cfg.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = classifyError(err, statusCode)
	})

	start := time.Now()
	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = classifyError(err, 0)
	}
	f.metrics.ObserveFetch(time.Since(start))

	if fetchErr != nil {
		f.metrics.IncError(errorTypeLabel(fetchErr))
		return nil, fetchErr
	}
	if len(body) == 0 {
		err := ErrConnection{Err: fmt.Errorf("empty response from %s", pageURL)}
		f.metrics.IncError(errorTypeLabel(err))
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) rotateAgent() string {
	agents := f.cfg.UserAgents
	if len(agents) == 0 {
		return ""
	}
	n := atomic.AddUint32(&f.nextAgent, 1)
	return agents[int(n-1)%len(agents)]
}
