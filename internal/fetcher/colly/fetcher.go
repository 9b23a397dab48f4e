// Package collyfetcher implements prober.Prober with HEAD requests issued
// through gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"github.com/gocolly/colly/v2/proxy"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// Config controls collector behavior.
type Config struct {
	// UserAgents is sampled per request. Empty means a generated browser UA.
	UserAgents []string
	// Proxies rotate round-robin. A pool of one or zero entries is not used.
	Proxies []string
	Timeout time.Duration
}

// Fetcher implements prober.Prober using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Clones of the base collector share its transport, so
// connection pooling and proxy rotation span all workers.
func New(cfg Config) (*Fetcher, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	c.WithTransport(newHTTPTransport())

	if len(cfg.Proxies) > 1 {
		switcher, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("configure proxy rotation: %w", err)
		}
		c.SetProxyFunc(switcher)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	// Clones share the base collector's http.Client, so the timeout is set
	// once here rather than per probe.
	c.SetRequestTimeout(cfg.Timeout)
	return &Fetcher{cfg: cfg, baseCollector: c}, nil
}

// Probe issues a HEAD request for request.URL. Any HTTP status is a
// successful probe; only transport and proxy failures return an error.
func (f *Fetcher) Probe(ctx context.Context, request prober.ProbeRequest) (prober.ProbeResponse, error) {
	var (
		result   prober.ProbeResponse
		fetchErr error
	)
	collector := f.buildCollector(time.Now(), &result, &fetchErr)
	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return prober.ProbeResponse{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(start time.Time, result *prober.ProbeResponse, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if len(f.cfg.UserAgents) == 0 {
		extensions.RandomUserAgent(collector)
	}
	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *prober.ProbeResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		if ua := f.pickUserAgent(); ua != "" {
			r.Headers.Set("User-Agent", ua)
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = prober.ProbeResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			ProxyURL:   r.Request.ProxyURL,
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) pickUserAgent() string {
	if len(f.cfg.UserAgents) == 0 {
		return ""
	}
	return f.cfg.UserAgents[rand.IntN(len(f.cfg.UserAgents))]
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Head(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly head failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
	}
}
