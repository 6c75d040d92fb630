// Package download turns resolved descriptors into files on disk: a
// rate-limited HTTP fetcher for link-fetch resolutions, a click fallback
// delegated to the portal, and an orchestrator that collects per-file
// failures instead of aborting.
package download

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSec and Burst bound request rate per host. Municipal portals
	// are small; stay polite.
	RatePerSec float64
	Burst      int
}

// HTTPFetcher downloads resolved URLs over net/http. Each download is
// attempted exactly once: signed storage URLs expire and API URLs are cheap
// to re-resolve on the next run, so retrying here buys nothing. Not safe for
// concurrent use: the per-host limiter map is unsynchronized, matching the
// orchestrator's sequential execution.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "civicgrab/1.0"
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 4
	}
	if opts.Burst == 0 {
		opts.Burst = 4
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: map[string]*rate.Limiter{},
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(f.opts.RatePerSec), f.opts.Burst)
	f.limiters[host] = lim
	return lim
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetch: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into path. The body is written to a
// temporary sibling and renamed only after a full write, so a partial
// download never sits under a final name.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: create %s", tmp)
	}

	n, err := io.Copy(file, body)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return 0, eris.Wrap(err, "fetch: write body")
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, eris.Wrap(err, "fetch: close file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, eris.Wrapf(err, "fetch: rename to %s", filepath.Base(path))
	}
	return n, nil
}
