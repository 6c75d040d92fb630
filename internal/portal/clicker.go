package portal

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicgrab/civicgrab/internal/browser"
	"github.com/civicgrab/civicgrab/internal/model"
)

// DownloadByClick acquires a file through the UI: re-open the meeting's files
// view, find the row for the descriptor, open its format menu, click the
// matching download control, and save the browser-captured download to
// destPath. This is the universal fallback when no URL could be extracted —
// slower and more fragile, but it needs no component state at all.
func (c *Client) DownloadByClick(ctx context.Context, page browser.Page, m model.Meeting, d model.FileDescriptor, destPath string) error {
	sel := c.profile.Selectors

	if err := page.Navigate(ctx, c.filesURL(m.ID)); err != nil {
		return eris.Wrapf(err, "portal: navigate to files view for meeting %s", m.ID)
	}
	if err := page.WaitForSelector(ctx, sel.FilesList, c.profile.Timeouts.Files()); err != nil {
		return eris.Wrapf(err, "portal: files view did not render for meeting %s", m.ID)
	}

	btn, err := c.findRowButton(page, d.Name)
	if err != nil {
		return err
	}

	if err := btn.ScrollIntoView(ctx); err != nil {
		zap.L().Debug("scroll to download button", zap.Error(err))
	}
	if err := btn.Click(ctx); err != nil {
		return eris.Wrapf(err, "portal: open download menu for %q", d.Name)
	}

	btnID, _ := btn.Attribute("id")
	menuSel := "#" + btnID + "-menu"
	if err := page.WaitForSelector(ctx, menuSel, c.profile.Timeouts.Menu()); err != nil {
		return eris.Wrapf(err, "portal: download menu did not open for %q", d.Name)
	}
	menu, ok := page.QueryOne(menuSel)
	if !ok {
		return eris.Errorf("portal: download menu vanished for %q", d.Name)
	}
	items, err := menu.Query(sel.MenuItem)
	if err != nil || len(items) == 0 {
		return eris.Errorf("portal: no menu items for %q", d.Name)
	}

	control, err := c.pickMenuControl(items, d.PlainText)
	if err != nil {
		return eris.Wrapf(err, "portal: %q", d.Name)
	}

	dl, err := page.ExpectDownload(ctx, c.profile.Timeouts.Download(), func() error {
		return control.Click(ctx)
	})
	if err != nil {
		return eris.Wrapf(err, "portal: capture download for %q", d.Name)
	}
	if err := dl.SaveAs(destPath); err != nil {
		return eris.Wrapf(err, "portal: save download for %q", d.Name)
	}
	return nil
}

// findRowButton locates the download button for the row whose display name
// matches, searching the main files list first, then attachments.
func (c *Client) findRowButton(page browser.Page, name string) (browser.Element, error) {
	sel := c.profile.Selectors

	lists := []struct {
		listSel string
		rowSel  string
	}{
		{sel.FilesList, sel.FileRow},
		{sel.AttachmentsList, "li"},
	}
	for _, l := range lists {
		list, ok := page.QueryOne(l.listSel)
		if !ok {
			continue
		}
		rows, err := list.Query(l.rowSel)
		if err != nil {
			continue
		}
		for _, row := range rows {
			nameEl, ok := row.QueryOne(sel.FileName)
			if !ok {
				continue
			}
			if strings.TrimSpace(nameEl.Text()) != name {
				continue
			}
			if btn, ok := c.downloadButton(row); ok {
				return btn, nil
			}
		}
	}
	return nil, eris.Errorf("portal: no download button found for %q", name)
}

// pickMenuControl chooses the menu item matching the descriptor's format:
// the "Plain Text" item for plain-text descriptors, otherwise the first
// non-plain-text item, falling back to the first control present.
func (c *Client) pickMenuControl(items []browser.Element, plainText bool) (browser.Element, error) {
	sel := c.profile.Selectors

	var fallback browser.Element
	for _, item := range items {
		control, ok := item.QueryOne(sel.MenuDownload)
		if !ok {
			continue
		}
		if fallback == nil {
			fallback = control
		}
		label := ""
		if labelEl, ok := item.QueryOne(sel.FileName); ok {
			label = labelEl.Text()
		}
		if strings.Contains(label, "Plain Text") == plainText {
			return control, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, eris.New("no downloadable menu item")
}
