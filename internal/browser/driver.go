// Package browser defines the port to an external browser-automation driver.
// The scraper core only needs navigation, bounded waits, element queries,
// clicks, and download capture; concrete bindings (Playwright, chromedp, ...)
// register themselves like database/sql drivers and are wired at build time.
package browser

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Element is a handle to a live, rendered DOM element.
type Element interface {
	// Attribute returns the attribute value and whether it is set.
	Attribute(name string) (string, bool)
	// Text returns the element's trimmed text content.
	Text() string
	// Query returns all descendants matching the CSS selector.
	Query(selector string) ([]Element, error)
	// QueryOne returns the first descendant matching the selector.
	QueryOne(selector string) (Element, bool)
	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
}

// Download is a browser-captured file save.
type Download interface {
	SuggestedFilename() string
	SaveAs(path string) error
}

// Page is a single browser tab. It is a single-owner resource: the scraper
// drives one page from one logical flow at a time.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitForSelector blocks until the selector matches or the timeout
	// elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Query(selector string) ([]Element, error)
	QueryOne(selector string) (Element, bool)
	// ClickAt dispatches a click at page coordinates. Used to dismiss open
	// menus by clicking outside them.
	ClickAt(ctx context.Context, x, y int) error
	// ExpectDownload runs trigger and waits for the browser-initiated
	// download it causes.
	ExpectDownload(ctx context.Context, timeout time.Duration, trigger func() error) (Download, error)
}

// Session owns one page and must be closed on every exit path.
type Session interface {
	Page() Page
	Close() error
}

// Options configures a new session.
type Options struct {
	Headless        bool
	UserAgent       string
	AcceptDownloads bool
	DownloadDir     string
}

// Factory opens a new session against a concrete driver.
type Factory func(ctx context.Context, opts Options) (Session, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Factory{}
)

// Register makes a driver available under the given name. Bindings call this
// from an init function. Registering the same name twice panics.
func Register(name string, f Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if f == nil {
		panic("browser: Register with nil factory")
	}
	if _, dup := drivers[name]; dup {
		panic("browser: Register called twice for driver " + name)
	}
	drivers[name] = f
}

// Drivers returns the names of all registered drivers, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open starts a session with the named driver.
func Open(ctx context.Context, name string, opts Options) (Session, error) {
	driversMu.RLock()
	f, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, eris.Errorf("browser: unknown driver %q (registered: %v)", name, Drivers())
	}
	sess, err := f(ctx, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: open %s session", name)
	}
	return sess, nil
}
