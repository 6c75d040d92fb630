package portal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrab/civicgrab/internal/browser"
	"github.com/civicgrab/civicgrab/internal/fiber"
)

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

// The fakes model the page as selector-keyed lookup tables: selectors are
// opaque keys, which is all the scraper assumes about them.

type fakeElement struct {
	attrs    map[string]string
	text     string
	children map[string][]browser.Element
	clicks   int
	clickErr error
}

func (e *fakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Query(selector string) ([]browser.Element, error) {
	return e.children[selector], nil
}

func (e *fakeElement) QueryOne(selector string) (browser.Element, bool) {
	els := e.children[selector]
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

func (e *fakeElement) Click(context.Context) error {
	e.clicks++
	return e.clickErr
}

func (e *fakeElement) ScrollIntoView(context.Context) error { return nil }

type fakeDownload struct {
	filename string
	content  []byte
}

func (d *fakeDownload) SuggestedFilename() string { return d.filename }

func (d *fakeDownload) SaveAs(path string) error {
	return os.WriteFile(path, d.content, 0o644)
}

type fakePage struct {
	elements  map[string][]browser.Element
	failWaits map[string]bool
	navigated []string
	dismissed int
	download  *fakeDownload
	dlErr     error
}

func newFakePage() *fakePage {
	return &fakePage{
		elements:  map[string][]browser.Element{},
		failWaits: map[string]bool{},
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	if p.failWaits[selector] {
		return eris.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (p *fakePage) Query(selector string) ([]browser.Element, error) {
	return p.elements[selector], nil
}

func (p *fakePage) QueryOne(selector string) (browser.Element, bool) {
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

func (p *fakePage) ClickAt(context.Context, int, int) error {
	p.dismissed++
	return nil
}

func (p *fakePage) ExpectDownload(_ context.Context, _ time.Duration, trigger func() error) (browser.Download, error) {
	if err := trigger(); err != nil {
		return nil, err
	}
	if p.dlErr != nil {
		return nil, p.dlErr
	}
	return p.download, nil
}

// fakeSource attaches fiber nodes to specific elements.
type fakeSource struct {
	nodes map[browser.Element]*fiber.MapNode
}

func (s *fakeSource) NodeFor(_ context.Context, el browser.Element, _ fiber.Convention) (fiber.Node, error) {
	if n, ok := s.nodes[el]; ok {
		return n, nil
	}
	return nil, fiber.ErrNotFound
}

// --- builders ---

func meetingLink(id, href, title, dataDate, ariaLabel string) *fakeElement {
	sel := DefaultProfile().Selectors
	attrs := map[string]string{"href": href}
	if id != "" {
		attrs["data-id"] = id
	}
	if dataDate != "" {
		attrs["data-date"] = dataDate
	}
	if ariaLabel != "" {
		attrs["aria-label"] = ariaLabel
	}
	link := &fakeElement{attrs: attrs, children: map[string][]browser.Element{}}
	if title != "" {
		link.children[sel.EventTitle] = []browser.Element{&fakeElement{text: title}}
	}
	return link
}

func meetingRow(link *fakeElement) *fakeElement {
	sel := DefaultProfile().Selectors
	children := map[string][]browser.Element{}
	if link != nil {
		children[sel.EventLink] = []browser.Element{link}
	}
	return &fakeElement{children: children}
}

// eventListPage wires rows into a page the enumerator can walk.
func eventListPage(rows ...*fakeElement) *fakePage {
	sel := DefaultProfile().Selectors
	els := make([]browser.Element, len(rows))
	for i, r := range rows {
		els[i] = r
	}
	list := &fakeElement{children: map[string][]browser.Element{sel.EventRow: els}}
	page := newFakePage()
	page.elements[sel.EventList] = []browser.Element{list}
	return page
}

// fileRow builds one downloadable file row plus its format menu, registering
// the menu on the page and fiber nodes on the source.
type fileRowSpec struct {
	name      string
	buttonID  string
	rowRemote map[string]any
	menu      []menuItemSpec
}

type menuItemSpec struct {
	label  string
	remote map[string]any
}

func buildFileRow(page *fakePage, src *fakeSource, spec fileRowSpec) *fakeElement {
	sel := DefaultProfile().Selectors

	btn := &fakeElement{attrs: map[string]string{"id": spec.buttonID}}
	if spec.rowRemote != nil {
		src.nodes[btn] = &fiber.MapNode{
			Name:    "DownloadFileButton",
			PropBag: map[string]any{"remoteFile": spec.rowRemote},
		}
	}

	row := &fakeElement{children: map[string][]browser.Element{
		sel.FileName:           {&fakeElement{text: spec.name}},
		sel.DownloadButtons[0]: {btn},
	}}

	var items []browser.Element
	for _, mi := range spec.menu {
		control := &fakeElement{}
		if mi.remote != nil {
			src.nodes[control] = &fiber.MapNode{
				Name:    "DownloadFileButton",
				PropBag: map[string]any{"remoteFile": mi.remote},
			}
		}
		item := &fakeElement{children: map[string][]browser.Element{
			sel.FileName:     {&fakeElement{text: mi.label}},
			sel.MenuDownload: {control},
		}}
		items = append(items, item)
	}
	menu := &fakeElement{children: map[string][]browser.Element{sel.MenuItem: items}}
	page.elements["#"+spec.buttonID+"-menu"] = []browser.Element{menu}

	return row
}
