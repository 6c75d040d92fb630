package download

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicgrab/civicgrab/internal/model"
)

// Fetcher downloads one URL to one path.
type Fetcher interface {
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}

// ClickFunc acquires one file through the simulated UI interaction sequence.
// Nil when the driver binding cannot capture downloads.
type ClickFunc func(ctx context.Context, m model.Meeting, d model.FileDescriptor, destPath string) error

// MeetingBatch is one meeting together with its resolved downloads. Err
// carries a meeting-level extraction failure (files view unreachable); the
// orchestrator records it in the report so the summary accounts for the
// meeting instead of silently dropping it.
type MeetingBatch struct {
	Meeting model.Meeting
	Files   []model.ResolvedDownload
	Err     error
}

// Orchestrator executes resolved downloads sequentially: one meeting at a
// time, one file at a time, because the click fallback shares a single
// browser page. A failure on one file is recorded and the run moves on; the
// final report carries every outcome.
type Orchestrator struct {
	fetcher Fetcher
	click   ClickFunc
	root    string
}

// NewOrchestrator creates an Orchestrator writing under root.
func NewOrchestrator(fetcher Fetcher, click ClickFunc, root string) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, click: click, root: root}
}

// Run processes every batch and returns the accumulated report. The only
// errors surfaced per file are recorded in the report, never returned.
func (o *Orchestrator) Run(ctx context.Context, batches []MeetingBatch) *model.RunReport {
	report := &model.RunReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Meetings:  len(batches),
	}
	log := zap.L().With(zap.String("run_id", report.ID))

	for _, batch := range batches {
		if batch.Err != nil {
			report.Add(model.FileResult{
				MeetingID: batch.Meeting.ID,
				Name:      batch.Meeting.Title,
				Status:    model.FileStatusFailed,
				Error:     batch.Err.Error(),
			})
			log.Warn("meeting failed before download",
				zap.String("meeting_id", batch.Meeting.ID),
				zap.Error(batch.Err),
			)
			continue
		}

		dir := MeetingDir(o.root, batch.Meeting)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			// The whole meeting is unwritable; record each file as failed
			// and keep going with the next meeting.
			for _, res := range batch.Files {
				report.Add(o.failure(batch.Meeting, res, "", eris.Wrapf(err, "create %s", dir)))
			}
			log.Warn("meeting directory not writable",
				zap.String("meeting_id", batch.Meeting.ID),
				zap.Error(err),
			)
			continue
		}

		for _, res := range batch.Files {
			report.Add(o.one(ctx, batch.Meeting, res, dir))
		}
	}

	report.FinishedAt = time.Now().UTC()
	log.Info("run complete",
		zap.Int("meetings", report.Meetings),
		zap.Int("files", report.Files()),
		zap.Int("failed", report.Failed()),
	)
	return report
}

func (o *Orchestrator) one(ctx context.Context, m model.Meeting, res model.ResolvedDownload, dir string) model.FileResult {
	dest := filepath.Join(dir, Filename(res.Descriptor))
	log := zap.L().With(
		zap.String("meeting_id", m.ID),
		zap.String("file", res.Descriptor.Name),
		zap.String("strategy", string(res.Strategy)),
	)

	switch res.Strategy {
	case model.StrategyLinkFetch:
		n, err := o.fetcher.DownloadToFile(ctx, res.URL, dest)
		if err != nil {
			log.Warn("download failed", zap.Error(err))
			return o.failure(m, res, dest, err)
		}
		log.Info("downloaded", zap.Int64("bytes", n), zap.String("dest", dest))
		return o.success(m, res, dest, n)

	case model.StrategyClick:
		if o.click == nil {
			return o.failure(m, res, dest, eris.New("click downloads unavailable with this driver"))
		}
		if err := o.click(ctx, m, res.Descriptor, dest); err != nil {
			log.Warn("click download failed", zap.Error(err))
			return o.failure(m, res, dest, err)
		}
		log.Info("downloaded via click", zap.String("dest", dest))
		return o.success(m, res, dest, 0)

	default:
		return o.failure(m, res, dest, eris.Errorf("unknown strategy %q", res.Strategy))
	}
}

func (o *Orchestrator) success(m model.Meeting, res model.ResolvedDownload, dest string, n int64) model.FileResult {
	return model.FileResult{
		MeetingID: m.ID,
		Name:      res.Descriptor.Name,
		Kind:      res.Descriptor.Kind,
		Strategy:  res.Strategy,
		URL:       res.URL,
		Dest:      dest,
		Bytes:     n,
		Status:    model.FileStatusOK,
	}
}

func (o *Orchestrator) failure(m model.Meeting, res model.ResolvedDownload, dest string, err error) model.FileResult {
	return model.FileResult{
		MeetingID: m.ID,
		Name:      res.Descriptor.Name,
		Kind:      res.Descriptor.Kind,
		Strategy:  res.Strategy,
		URL:       res.URL,
		Dest:      dest,
		Status:    model.FileStatusFailed,
		Error:     err.Error(),
	}
}
