package model

import "time"

// FileStatus is the per-file outcome of a run.
type FileStatus string

const (
	FileStatusOK      FileStatus = "ok"
	FileStatusFailed  FileStatus = "failed"
	FileStatusSkipped FileStatus = "skipped"
)

// FileResult records the outcome of one file acquisition attempt.
type FileResult struct {
	MeetingID string     `json:"meeting_id"`
	Name      string     `json:"name"`
	Kind      FileKind   `json:"kind"`
	Strategy  Strategy   `json:"strategy"`
	URL       string     `json:"url,omitempty"`
	Dest      string     `json:"dest,omitempty"`
	Bytes     int64      `json:"bytes,omitempty"`
	Status    FileStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// RunReport accumulates per-file outcomes across a whole run. Per-file and
// per-meeting failures are collected here rather than raised; only a total
// inability to enumerate meetings aborts a run.
type RunReport struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Meetings   int          `json:"meetings"`
	Results    []FileResult `json:"results"`
}

// Add appends one file outcome.
func (r *RunReport) Add(res FileResult) {
	r.Results = append(r.Results, res)
}

// Files returns the total number of file attempts recorded.
func (r *RunReport) Files() int { return len(r.Results) }

// Failed returns how many file attempts failed.
func (r *RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == FileStatusFailed {
			n++
		}
	}
	return n
}

// Succeeded returns how many file attempts completed.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == FileStatusOK {
			n++
		}
	}
	return n
}

// RunSummary is the list-view projection of a stored run.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Meetings   int       `json:"meetings"`
	Files      int       `json:"files"`
	Failed     int       `json:"failed"`
}
