package portal

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicgrab/civicgrab/internal/browser"
	"github.com/civicgrab/civicgrab/internal/fiber"
	"github.com/civicgrab/civicgrab/internal/model"
)

// Client scrapes one portal profile through a browser page.
type Client struct {
	profile Profile
	insp    *fiber.Inspector
}

// New creates a Client. src may be nil when the driver binding cannot reflect
// over framework internals; file extraction then yields descriptors with no
// candidate URLs and every file falls back to click downloads.
func New(p Profile, src fiber.Source) *Client {
	return &Client{
		profile: p,
		insp:    fiber.New(p.Fiber, src),
	}
}

// Profile returns the profile the client was built with.
func (c *Client) Profile() Profile { return c.profile }

// Meetings lists all meetings exposed by the portal's event-list view. A
// listing view that never renders is fatal for the run: nothing downstream is
// recoverable without it. Individual rows that fail to parse are skipped with
// a warning.
func (c *Client) Meetings(ctx context.Context, page browser.Page) ([]model.Meeting, error) {
	sel := c.profile.Selectors
	log := zap.L().With(zap.String("portal", c.profile.BaseURL))

	if err := page.Navigate(ctx, c.profile.BaseURL); err != nil {
		return nil, eris.Wrap(err, "portal: navigate to event list")
	}

	// The list is client-rendered: wait for the table shell, the list, and
	// at least one linked row before reading anything.
	for _, wait := range []string{
		sel.EventListTable,
		sel.EventList,
		sel.EventRow + " " + sel.EventLink,
	} {
		if err := page.WaitForSelector(ctx, wait, c.profile.Timeouts.List()); err != nil {
			return nil, eris.Wrapf(err, "portal: event list did not render (%s)", wait)
		}
	}

	list, ok := page.QueryOne(sel.EventList)
	if !ok {
		return nil, eris.New("portal: event list vanished after render")
	}
	rows, err := list.Query(sel.EventRow)
	if err != nil {
		return nil, eris.Wrap(err, "portal: query event rows")
	}

	meetings := make([]model.Meeting, 0, len(rows))
	for i, row := range rows {
		// Subheader rows ("Past Events", ...) carry no link.
		link, ok := row.QueryOne(sel.EventLink)
		if !ok {
			continue
		}
		m, ok := c.parseMeetingRow(link)
		if !ok {
			log.Warn("skipping unparseable meeting row", zap.Int("row", i))
			continue
		}
		meetings = append(meetings, m)
	}

	log.Info("enumerated meetings",
		zap.Int("rows", len(rows)),
		zap.Int("meetings", len(meetings)),
	)
	return meetings, nil
}

func (c *Client) parseMeetingRow(link browser.Element) (model.Meeting, bool) {
	href, ok := link.Attribute("href")
	if !ok || href == "" {
		return model.Meeting{}, false
	}

	id, _ := link.Attribute("data-id")

	title := ""
	if h, ok := link.QueryOne(c.profile.Selectors.EventTitle); ok {
		title = strings.TrimSpace(h.Text())
	}
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}

	return model.Meeting{
		ID:    id,
		Title: title,
		Href:  href,
		URL:   c.absoluteURL(href),
		Date:  c.eventDate(link),
	}, true
}

// absoluteURL resolves a portal href against the base URL.
func (c *Client) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(c.profile.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// filesURL is the per-meeting files view.
func (c *Client) filesURL(meetingID string) string {
	return c.absoluteURL("/event/" + meetingID + "/files")
}
