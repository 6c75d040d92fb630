package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicgrab/civicgrab/internal/browser"
	"github.com/civicgrab/civicgrab/internal/config"
	"github.com/civicgrab/civicgrab/internal/download"
	"github.com/civicgrab/civicgrab/internal/extract"
	"github.com/civicgrab/civicgrab/internal/fiber"
	"github.com/civicgrab/civicgrab/internal/model"
	"github.com/civicgrab/civicgrab/internal/portal"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Enumerate meetings and download their files",
	Long:  "Loads the portal's meeting list, walks each meeting's files view, resolves download URLs, and optionally downloads everything to disk.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := parseScrapeOptions(cmd)
		if err != nil {
			return err
		}
		return runScrape(ctx, opts)
	},
}

func init() {
	scrapeCmd.Flags().BoolP("download", "d", false, "download files instead of just listing them")
	scrapeCmd.Flags().String("download-dir", "", "directory for downloaded files (default from config)")
	scrapeCmd.Flags().Bool("meetings-only", false, "list meetings without visiting their files views")
	scrapeCmd.Flags().Int("meeting-count", 0, "only process the N most recent meetings")
	scrapeCmd.Flags().String("start", "", "earliest meeting date to include (YYYY-MM-DD, inclusive)")
	scrapeCmd.Flags().String("end", "", "latest meeting date to include (YYYY-MM-DD, inclusive)")
	scrapeCmd.Flags().Bool("click-download", false, "force the simulated-interaction fallback for every file")

	rootCmd.AddCommand(scrapeCmd)
}

// scrapeOptions are the validated flag values for one scrape invocation.
type scrapeOptions struct {
	download      bool
	downloadDir   string
	meetingsOnly  bool
	meetingCount  int
	start         time.Time
	end           time.Time
	clickDownload bool
}

func parseScrapeOptions(cmd *cobra.Command) (scrapeOptions, error) {
	var opts scrapeOptions
	opts.download, _ = cmd.Flags().GetBool("download")
	opts.downloadDir, _ = cmd.Flags().GetString("download-dir")
	opts.meetingsOnly, _ = cmd.Flags().GetBool("meetings-only")
	opts.meetingCount, _ = cmd.Flags().GetInt("meeting-count")
	opts.clickDownload, _ = cmd.Flags().GetBool("click-download")

	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")

	var err error
	if opts.start, err = parseDateFlag(startStr); err != nil {
		return opts, eris.Wrap(err, "scrape: --start")
	}
	if opts.end, err = parseDateFlag(endStr); err != nil {
		return opts, eris.Wrap(err, "scrape: --end")
	}
	if !opts.start.IsZero() && !opts.end.IsZero() && opts.start.After(opts.end) {
		return opts, eris.New("scrape: --start is after --end")
	}
	if opts.meetingCount < 0 {
		return opts, eris.New("scrape: --meeting-count must be >= 0")
	}
	return opts, nil
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", s)
	}
	return t.UTC(), nil
}

// loadPortalProfile builds the portal profile from the optional profile file
// plus config overrides for the two URLs.
func loadPortalProfile(c *config.Config) (portal.Profile, error) {
	p := portal.DefaultProfile()
	if c.Portal.ProfilePath != "" {
		loaded, err := portal.LoadProfile(c.Portal.ProfilePath)
		if err != nil {
			return portal.Profile{}, err
		}
		p = loaded
	}
	if c.Portal.BaseURL != "" {
		p.BaseURL = c.Portal.BaseURL
	}
	if c.Portal.APIBaseURL != "" {
		p.APIBaseURL = c.Portal.APIBaseURL
	}
	return p, nil
}

func runScrape(ctx context.Context, opts scrapeOptions) error {
	log := zap.L()

	profile, err := loadPortalProfile(cfg)
	if err != nil {
		return err
	}

	downloadDir := opts.downloadDir
	if downloadDir == "" {
		downloadDir = cfg.Download.Dir
	}

	sess, err := browser.Open(ctx, cfg.Browser.Driver, browser.Options{
		Headless:        cfg.Browser.Headless,
		UserAgent:       cfg.Browser.UserAgent,
		AcceptDownloads: opts.download,
		DownloadDir:     downloadDir,
	})
	if err != nil {
		return err
	}
	defer sess.Close() //nolint:errcheck
	page := sess.Page()

	// Drivers that can reach into the page's JS heap expose component state;
	// without it every file falls back to the click path.
	src, _ := sess.(fiber.Source)
	if src == nil {
		log.Warn("driver does not expose component state, downloads will use the click fallback",
			zap.String("driver", cfg.Browser.Driver))
	}
	client := portal.New(profile, src)

	meetings, err := client.Meetings(ctx, page)
	if err != nil {
		return eris.Wrap(err, "scrape")
	}
	selected := model.FilterMeetings(meetings, opts.start, opts.end, opts.meetingCount)
	log.Info("meetings enumerated",
		zap.Int("found", len(meetings)),
		zap.Int("selected", len(selected)),
	)

	if opts.meetingsOnly {
		formatMeetings(os.Stdout, selected)
		return nil
	}

	extractOpts := extract.Options{
		APIBaseURL: profile.APIBaseURL,
		ForceClick: opts.clickDownload,
	}

	batches := make([]download.MeetingBatch, 0, len(selected))
	for _, m := range selected {
		files, err := client.MeetingFiles(ctx, page, m)
		if err != nil {
			log.Warn("meeting files unavailable",
				zap.String("meeting_id", m.ID),
				zap.Error(err),
			)
			// Keep the meeting in the batch so the run report counts it
			// as a failure instead of dropping it.
			batches = append(batches, download.MeetingBatch{Meeting: m, Err: err})
			continue
		}
		resolved := make([]model.ResolvedDownload, 0, len(files))
		for _, d := range files {
			resolved = append(resolved, extract.Resolve(d, extractOpts))
		}
		batches = append(batches, download.MeetingBatch{Meeting: m, Files: resolved})
	}

	if !opts.download {
		formatResolved(os.Stdout, batches)
		return nil
	}

	fetcher := download.NewHTTPFetcher(download.HTTPOptions{
		UserAgent:  cfg.Download.UserAgent,
		Timeout:    time.Duration(cfg.Download.TimeoutSecs) * time.Second,
		RatePerSec: cfg.Download.RatePerSec,
		Burst:      cfg.Download.Burst,
	})
	click := func(ctx context.Context, m model.Meeting, d model.FileDescriptor, destPath string) error {
		return client.DownloadByClick(ctx, page, m, d, destPath)
	}

	report := download.NewOrchestrator(fetcher, click, downloadDir).Run(ctx, batches)
	saveReport(ctx, report)
	formatReport(os.Stdout, report)

	if report.Failed() > 0 {
		return eris.Errorf("scrape: %d of %d files failed", report.Failed(), report.Files())
	}
	return nil
}

// saveReport persists the run best-effort; history is a convenience, not a
// reason to fail a scrape that already wrote its files.
func saveReport(ctx context.Context, report *model.RunReport) {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck

	if err := st.SaveReport(ctx, report); err != nil {
		zap.L().Warn("save run report", zap.Error(err))
	}
}

// formatMeetings writes a tabular meeting list to w.
func formatMeetings(out io.Writer, meetings []model.Meeting) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATE\tTITLE")
	_, _ = fmt.Fprintln(w, "--\t----\t-----")
	for _, m := range meetings {
		date := "unknown"
		if m.HasDate() {
			date = m.Date.Format("2006-01-02")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, date, m.Title)
	}
	_ = w.Flush()
}

// formatResolved writes each meeting's resolved files to w.
func formatResolved(out io.Writer, batches []download.MeetingBatch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, b := range batches {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Meeting.ID, b.Meeting.Title)
		if b.Err != nil {
			_, _ = fmt.Fprintf(w, "  (files unavailable: %v)\n", b.Err)
			continue
		}
		for _, r := range b.Files {
			url := r.URL
			if r.Strategy == model.StrategyClick {
				url = "(click)"
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", r.Descriptor.Name, r.Descriptor.Kind, url)
		}
	}
	_ = w.Flush()
}

// formatReport writes the run summary to w.
func formatReport(out io.Writer, report *model.RunReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", report.ID)
	_, _ = fmt.Fprintf(w, "Meetings:\t%d\n", report.Meetings)
	_, _ = fmt.Fprintf(w, "Files:\t%d\n", report.Files())
	_, _ = fmt.Fprintf(w, "Succeeded:\t%d\n", report.Succeeded())
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", report.Failed())
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	_ = w.Flush()

	for _, r := range report.Results {
		if r.Status == model.FileStatusFailed {
			fmt.Fprintf(out, "FAILED %s/%s: %s\n", r.MeetingID, r.Name, r.Error)
		}
	}
}
