package download

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrab/civicgrab/internal/model"
)

// fakeFetcher records requested URLs and can fail selectively.
type fakeFetcher struct {
	calls   []string
	failURL string
}

func (f *fakeFetcher) DownloadToFile(_ context.Context, url, path string) (int64, error) {
	f.calls = append(f.calls, url)
	if url == f.failURL {
		return 0, eris.New("connection reset")
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		return 0, err
	}
	return 4, nil
}

func meetingA() model.Meeting {
	return model.Meeting{ID: "A", Title: "Trustees", Date: time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC)}
}

func meetingB() model.Meeting {
	return model.Meeting{ID: "B", Title: "Planning", Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)}
}

func linkFetch(name, id, url string) model.ResolvedDownload {
	return model.ResolvedDownload{
		Descriptor: model.FileDescriptor{Name: name, FileID: id, Kind: model.ClassifyKind(name)},
		Strategy:   model.StrategyLinkFetch,
		URL:        url,
		Source:     model.SourceDirectBlob,
	}
}

func TestRun_DownloadsToMeetingDirs(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{}
	o := NewOrchestrator(fetcher, nil, root)

	report := o.Run(context.Background(), []MeetingBatch{
		{Meeting: meetingA(), Files: []model.ResolvedDownload{linkFetch("Agenda", "1", "https://blob/1")}},
	})

	assert.Equal(t, 1, report.Meetings)
	assert.Equal(t, 1, report.Succeeded())
	assert.Zero(t, report.Failed())

	data, err := os.ReadFile(MeetingDir(root, meetingA()) + "/Agenda_1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestRun_FailureDoesNotStopOtherMeetings(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{failURL: "https://blob/a2"}
	o := NewOrchestrator(fetcher, nil, root)

	report := o.Run(context.Background(), []MeetingBatch{
		{Meeting: meetingA(), Files: []model.ResolvedDownload{
			linkFetch("Agenda", "a1", "https://blob/a1"),
			linkFetch("Agenda Packet", "a2", "https://blob/a2"), // fails
		}},
		{Meeting: meetingB(), Files: []model.ResolvedDownload{
			linkFetch("Minutes", "b1", "https://blob/b1"),
		}},
	})

	// Meeting B was still attempted after A's second file failed.
	assert.Equal(t, []string{"https://blob/a1", "https://blob/a2", "https://blob/b1"}, fetcher.calls)
	assert.Equal(t, 3, report.Files())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 2, report.Succeeded())

	var failed model.FileResult
	for _, r := range report.Results {
		if r.Status == model.FileStatusFailed {
			failed = r
		}
	}
	assert.Equal(t, "A", failed.MeetingID)
	assert.Contains(t, failed.Error, "connection reset")
}

func TestRun_ClickStrategyDelegates(t *testing.T) {
	root := t.TempDir()
	var clicked []string
	click := func(_ context.Context, m model.Meeting, d model.FileDescriptor, dest string) error {
		clicked = append(clicked, d.Name)
		return os.WriteFile(dest, []byte("clicked"), 0o644)
	}
	o := NewOrchestrator(&fakeFetcher{}, click, root)

	report := o.Run(context.Background(), []MeetingBatch{
		{Meeting: meetingA(), Files: []model.ResolvedDownload{{
			Descriptor: model.FileDescriptor{Name: "Staff Report"},
			Strategy:   model.StrategyClick,
		}}},
	})

	assert.Equal(t, []string{"Staff Report"}, clicked)
	assert.Equal(t, 1, report.Succeeded())
}

func TestRun_ClickUnavailableRecordsFailure(t *testing.T) {
	o := NewOrchestrator(&fakeFetcher{}, nil, t.TempDir())

	report := o.Run(context.Background(), []MeetingBatch{
		{Meeting: meetingA(), Files: []model.ResolvedDownload{{
			Descriptor: model.FileDescriptor{Name: "Staff Report"},
			Strategy:   model.StrategyClick,
		}}},
	})

	require.Equal(t, 1, report.Failed())
	assert.Contains(t, report.Results[0].Error, "click downloads unavailable")
}

func TestRun_MeetingErrorCountedInReport(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{}
	o := NewOrchestrator(fetcher, nil, root)

	report := o.Run(context.Background(), []MeetingBatch{
		{Meeting: meetingA(), Err: eris.New("files view did not render")},
		{Meeting: meetingB(), Files: []model.ResolvedDownload{
			linkFetch("Minutes", "b1", "https://blob/b1"),
		}},
	})

	// The unreachable meeting still counts toward the summary.
	assert.Equal(t, 2, report.Meetings)
	assert.Equal(t, 2, report.Files())
	require.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Succeeded())

	failed := report.Results[0]
	assert.Equal(t, "A", failed.MeetingID)
	assert.Equal(t, model.FileStatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "did not render")

	// Only the healthy meeting reached the fetcher.
	assert.Equal(t, []string{"https://blob/b1"}, fetcher.calls)
}

func TestRun_ReportHasRunIdentityAndTimes(t *testing.T) {
	o := NewOrchestrator(&fakeFetcher{}, nil, t.TempDir())
	report := o.Run(context.Background(), nil)

	assert.NotEmpty(t, report.ID)
	assert.False(t, report.StartedAt.IsZero())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}
