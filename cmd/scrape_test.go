package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrab/civicgrab/internal/download"
	"github.com/civicgrab/civicgrab/internal/model"
)

func newScrapeFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "scrape"}
	cmd.Flags().BoolP("download", "d", false, "")
	cmd.Flags().String("download-dir", "", "")
	cmd.Flags().Bool("meetings-only", false, "")
	cmd.Flags().Int("meeting-count", 0, "")
	cmd.Flags().String("start", "", "")
	cmd.Flags().String("end", "", "")
	cmd.Flags().Bool("click-download", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestParseScrapeOptions_Defaults(t *testing.T) {
	opts, err := parseScrapeOptions(newScrapeFlags(t))
	require.NoError(t, err)

	assert.False(t, opts.download)
	assert.False(t, opts.meetingsOnly)
	assert.False(t, opts.clickDownload)
	assert.Zero(t, opts.meetingCount)
	assert.True(t, opts.start.IsZero())
	assert.True(t, opts.end.IsZero())
}

func TestParseScrapeOptions_Dates(t *testing.T) {
	opts, err := parseScrapeOptions(newScrapeFlags(t,
		"--start", "2025-01-01", "--end", "2025-06-30", "--meeting-count", "5", "-d"))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), opts.start)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), opts.end)
	assert.Equal(t, 5, opts.meetingCount)
	assert.True(t, opts.download)
}

func TestParseScrapeOptions_StartAfterEnd(t *testing.T) {
	_, err := parseScrapeOptions(newScrapeFlags(t, "--start", "2025-06-30", "--end", "2025-01-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start is after --end")
}

func TestParseScrapeOptions_BadDate(t *testing.T) {
	_, err := parseScrapeOptions(newScrapeFlags(t, "--start", "June 1 2025"))
	require.Error(t, err)
}

func TestParseScrapeOptions_NegativeCount(t *testing.T) {
	_, err := parseScrapeOptions(newScrapeFlags(t, "--meeting-count", "-3"))
	require.Error(t, err)
}

func TestFormatMeetings(t *testing.T) {
	var sb strings.Builder
	formatMeetings(&sb, []model.Meeting{
		{ID: "321", Title: "Board of Trustees", Date: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)},
		{ID: "322", Title: "Planning Commission"},
	})

	out := sb.String()
	assert.Contains(t, out, "321")
	assert.Contains(t, out, "2025-08-13")
	assert.Contains(t, out, "Board of Trustees")
	assert.Contains(t, out, "unknown")
}

func TestFormatResolved_MarksClickFallback(t *testing.T) {
	var sb strings.Builder
	formatResolved(&sb, []download.MeetingBatch{{
		Meeting: model.Meeting{ID: "321", Title: "Board of Trustees"},
		Files: []model.ResolvedDownload{
			{
				Descriptor: model.FileDescriptor{Name: "Agenda", Kind: model.KindAgenda},
				Strategy:   model.StrategyLinkFetch,
				URL:        "https://blob/42?sig=abc",
			},
			{
				Descriptor: model.FileDescriptor{Name: "Staff Report", Kind: model.KindOther},
				Strategy:   model.StrategyClick,
			},
		},
	}})

	out := sb.String()
	assert.Contains(t, out, "https://blob/42?sig=abc")
	assert.Contains(t, out, "(click)")
}

func TestFormatResolved_MeetingErrorShown(t *testing.T) {
	var sb strings.Builder
	formatResolved(&sb, []download.MeetingBatch{{
		Meeting: model.Meeting{ID: "322", Title: "Planning Commission"},
		Err:     assert.AnError,
	}})

	out := sb.String()
	assert.Contains(t, out, "322")
	assert.Contains(t, out, "files unavailable")
}

func TestFormatReport_ListsFailures(t *testing.T) {
	report := &model.RunReport{
		ID:         "run-1",
		StartedAt:  time.Date(2025, 8, 13, 18, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 8, 13, 18, 2, 0, 0, time.UTC),
		Meetings:   1,
	}
	report.Add(model.FileResult{MeetingID: "321", Name: "Agenda", Status: model.FileStatusOK})
	report.Add(model.FileResult{
		MeetingID: "321", Name: "Packet",
		Status: model.FileStatusFailed, Error: "unexpected status 403",
	})

	var sb strings.Builder
	formatReport(&sb, report)

	out := sb.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "FAILED 321/Packet: unexpected status 403")
	assert.Contains(t, out, "2m0s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "short", truncateID("short"))
}
