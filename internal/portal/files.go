package portal

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicgrab/civicgrab/internal/browser"
	"github.com/civicgrab/civicgrab/internal/extract"
	"github.com/civicgrab/civicgrab/internal/fiber"
	"github.com/civicgrab/civicgrab/internal/model"
)

// MeetingFiles extracts file descriptors from a meeting's files view: the
// main files list (agenda, packet, minutes) and the agenda-item attachments
// list. Per-file extraction problems are logged and skipped; a files view
// that never renders yields an empty result, not an error, so one broken
// meeting cannot stop a run.
func (c *Client) MeetingFiles(ctx context.Context, page browser.Page, m model.Meeting) ([]model.FileDescriptor, error) {
	sel := c.profile.Selectors
	log := zap.L().With(zap.String("meeting_id", m.ID))

	if err := page.Navigate(ctx, c.filesURL(m.ID)); err != nil {
		return nil, eris.Wrapf(err, "portal: navigate to files view for meeting %s", m.ID)
	}

	if err := page.WaitForSelector(ctx, sel.FilesList, c.profile.Timeouts.Files()); err != nil {
		log.Warn("files list did not render", zap.Error(err))
		return nil, nil
	}

	descriptors := c.walkFileList(ctx, page, sel.FilesList, sel.FileRow, false)

	// Attachments render after the main list and may legitimately be absent.
	if err := page.WaitForSelector(ctx, sel.AttachmentsList, c.profile.Timeouts.Files()); err == nil {
		descriptors = append(descriptors, c.walkFileList(ctx, page, sel.AttachmentsList, "li", true)...)
	} else {
		log.Debug("no attachments list", zap.Error(err))
	}

	log.Info("extracted file descriptors", zap.Int("files", len(descriptors)))
	return descriptors, nil
}

// walkFileList walks one list of file rows. For the attachments list,
// subheader rows set the current section and "No Attachment File"
// placeholders are skipped.
func (c *Client) walkFileList(ctx context.Context, page browser.Page, listSel, rowSel string, attachments bool) []model.FileDescriptor {
	sel := c.profile.Selectors
	log := zap.L()

	list, ok := page.QueryOne(listSel)
	if !ok {
		return nil
	}
	rows, err := list.Query(rowSel)
	if err != nil {
		log.Warn("query file rows", zap.String("list", listSel), zap.Error(err))
		return nil
	}

	var (
		descriptors []model.FileDescriptor
		section     string
	)
	for _, row := range rows {
		if attachments {
			if header, ok := row.QueryOne(sel.SectionHeader); ok {
				if text := strings.TrimSpace(header.Text()); text != "" {
					section = text
				}
				continue
			}
		}

		nameEl, ok := row.QueryOne(sel.FileName)
		if !ok {
			continue
		}
		name := strings.TrimSpace(nameEl.Text())
		if attachments && strings.Contains(name, "No Attachment File") {
			continue
		}

		btn, ok := c.downloadButton(row)
		if !ok {
			// Listed but not downloadable through any button; record it so
			// the report shows the file existed.
			d := extract.Descriptor(name, false, attachments, nil)
			d.Section = section
			descriptors = append(descriptors, d)
			continue
		}

		// State attached to the row's button covers menu items whose own
		// state is missing.
		rowRemote := c.remoteFile(ctx, btn)

		variants := c.menuVariants(ctx, page, btn)
		if len(variants) == 0 {
			d := extract.Descriptor(name, false, attachments, rowRemote)
			d.Section = section
			descriptors = append(descriptors, d)
			continue
		}
		for _, v := range variants {
			remote := v.remote
			if remote == nil {
				remote = rowRemote
			}
			d := extract.Descriptor(name, v.plainText, attachments, remote)
			d.Section = section
			descriptors = append(descriptors, d)
		}
	}
	return descriptors
}

// downloadButton finds the row's download button across the known testid
// variants (main files, report files, attachment files).
func (c *Client) downloadButton(row browser.Element) (browser.Element, bool) {
	for _, s := range c.profile.Selectors.DownloadButtons {
		if btn, ok := row.QueryOne(s); ok {
			return btn, true
		}
	}
	return nil, false
}

type menuVariant struct {
	label     string
	plainText bool
	remote    map[string]any
}

// menuVariants opens the button's format menu (PDF, Plain Text, ...) and
// inspects each item's download control for component state. The menu is
// dismissed by clicking outside it before returning.
func (c *Client) menuVariants(ctx context.Context, page browser.Page, btn browser.Element) []menuVariant {
	sel := c.profile.Selectors
	log := zap.L()

	btnID, ok := btn.Attribute("id")
	if !ok || btnID == "" {
		return nil
	}

	if err := btn.ScrollIntoView(ctx); err != nil {
		log.Debug("scroll to download button", zap.Error(err))
	}
	if err := btn.Click(ctx); err != nil {
		log.Warn("open download menu", zap.String("button", btnID), zap.Error(err))
		return nil
	}
	defer func() {
		if err := page.ClickAt(ctx, 0, 0); err != nil {
			log.Debug("dismiss download menu", zap.Error(err))
		}
	}()

	menuSel := "#" + btnID + "-menu"
	if err := page.WaitForSelector(ctx, menuSel, c.profile.Timeouts.Menu()); err != nil {
		log.Warn("download menu did not open", zap.String("button", btnID), zap.Error(err))
		return nil
	}
	menu, ok := page.QueryOne(menuSel)
	if !ok {
		return nil
	}
	items, err := menu.Query(sel.MenuItem)
	if err != nil {
		log.Warn("query menu items", zap.String("button", btnID), zap.Error(err))
		return nil
	}

	var variants []menuVariant
	for _, item := range items {
		labelEl, ok := item.QueryOne(sel.FileName)
		if !ok {
			continue
		}
		label := strings.TrimSpace(labelEl.Text())

		control, ok := item.QueryOne(sel.MenuDownload)
		if !ok {
			continue
		}
		variants = append(variants, menuVariant{
			label:     label,
			plainText: strings.Contains(label, "Plain Text"),
			remote:    c.remoteFile(ctx, control),
		})
	}
	return variants
}

// remoteFile inspects an element for the framework-attached remote-file
// state. A miss is expected (the file will be acquired by click), so only
// unexpected inspection errors are logged.
func (c *Client) remoteFile(ctx context.Context, el browser.Element) map[string]any {
	remote, err := c.insp.RemoteFile(ctx, el)
	if err != nil {
		if !eris.Is(err, fiber.ErrNotFound) {
			zap.L().Warn("component state inspection failed", zap.Error(err))
		}
		return nil
	}
	return remote
}
