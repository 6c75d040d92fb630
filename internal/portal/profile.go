// Package portal scrapes meeting metadata and file descriptors out of a
// CivicClerk-style civic portal. The portal is a client-rendered single-page
// app, so everything goes through a live browser page: list markup for
// meetings, and framework-internal component state for file download URLs.
package portal

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/civicgrab/civicgrab/internal/fiber"
)

// Selectors are the CSS selectors the scraper drives the page with. They are
// profile data, not code, so a markup change is a config edit.
type Selectors struct {
	EventListTable  string   `yaml:"event_list_table"`
	EventList       string   `yaml:"event_list"`
	EventRow        string   `yaml:"event_row"`
	EventLink       string   `yaml:"event_link"`
	EventTitle      string   `yaml:"event_title"`
	EventDateBlock  string   `yaml:"event_date_block"`
	FilesList       string   `yaml:"files_list"`
	AttachmentsList string   `yaml:"attachments_list"`
	FileRow         string   `yaml:"file_row"`
	FileName        string   `yaml:"file_name"`
	SectionHeader   string   `yaml:"section_header"`
	MenuItem        string   `yaml:"menu_item"`
	MenuDownload    string   `yaml:"menu_download"`
	DownloadButtons []string `yaml:"download_buttons"`
}

// Timeouts bound every browser-driven wait, in seconds.
type Timeouts struct {
	ListSecs     int `yaml:"list_secs"`
	FilesSecs    int `yaml:"files_secs"`
	MenuSecs     int `yaml:"menu_secs"`
	DownloadSecs int `yaml:"download_secs"`
}

func (t Timeouts) List() time.Duration     { return time.Duration(t.ListSecs) * time.Second }
func (t Timeouts) Files() time.Duration    { return time.Duration(t.FilesSecs) * time.Second }
func (t Timeouts) Menu() time.Duration     { return time.Duration(t.MenuSecs) * time.Second }
func (t Timeouts) Download() time.Duration { return time.Duration(t.DownloadSecs) * time.Second }

// Profile describes one portal: its URLs, markup selectors, and the
// rendering framework's internal naming convention.
type Profile struct {
	BaseURL    string           `yaml:"base_url"`
	APIBaseURL string           `yaml:"api_base_url"`
	Selectors  Selectors        `yaml:"selectors"`
	Fiber      fiber.Convention `yaml:"fiber"`
	Timeouts   Timeouts         `yaml:"timeouts"`
}

// DefaultProfile returns the profile for the Firestone CivicClerk portal.
func DefaultProfile() Profile {
	return Profile{
		BaseURL:    "https://firestoneco.portal.civicclerk.com",
		APIBaseURL: "https://firestoneco.api.civicclerk.com/v1/",
		Selectors: Selectors{
			EventListTable:  "#event-list-table",
			EventList:       "#Event-list",
			EventRow:        "li.MuiListItem-container",
			EventLink:       "a[href]",
			EventTitle:      "h3[id^='eventListRow-'][id$='-title']",
			EventDateBlock:  "div[data-testid='dateDetails'] h2",
			FilesList:       "#files",
			AttachmentsList: "#AttachmentsList",
			FileRow:         "li.MuiListItem-container",
			FileName:        "span.MuiListItemText-primary",
			SectionHeader:   ".MuiListSubheader-root span",
			MenuItem:        "li[role='menuitem']",
			MenuDownload:    "span[data-testid='downloadFileButton']",
			DownloadButtons: []string{
				"button[data-testid='files']",
				"button[data-testid='reportFiles']",
				"button[data-testid='attachmentFiles']",
			},
		},
		Fiber: fiber.DefaultConvention(),
		Timeouts: Timeouts{
			ListSecs:     30,
			FilesSecs:    20,
			MenuSecs:     5,
			DownloadSecs: 60,
		},
	}
}

// LoadProfile reads a profile from a YAML file, overlaying the defaults so a
// profile only needs to state what differs.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "portal: read profile %s", path)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, eris.Wrapf(err, "portal: parse profile %s", path)
	}
	if p.BaseURL == "" {
		return Profile{}, eris.Errorf("portal: profile %s missing base_url", path)
	}
	return p, nil
}
