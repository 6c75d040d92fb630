package model

import "strings"

// FileKind classifies a downloadable file by its display name.
type FileKind string

const (
	KindAgenda     FileKind = "agenda"
	KindPacket     FileKind = "packet"
	KindMinutes    FileKind = "minutes"
	KindMedia      FileKind = "media"
	KindCaption    FileKind = "caption"
	KindTranscript FileKind = "transcript"
	KindOther      FileKind = "other"
)

// kindKeywords maps name keywords to kinds. Order matters: "packet" must be
// checked before "agenda" so "Agenda Packet" classifies as a packet.
var kindKeywords = []struct {
	keyword string
	kind    FileKind
}{
	{"packet", KindPacket},
	{"agenda", KindAgenda},
	{"minutes", KindMinutes},
	{"caption", KindCaption},
	{"transcript", KindTranscript},
	{"video", KindMedia},
	{"audio", KindMedia},
	{"media", KindMedia},
	{"recording", KindMedia},
}

// ClassifyKind matches the display name against known keywords,
// case-insensitive, first match wins.
func ClassifyKind(name string) FileKind {
	lower := strings.ToLower(name)
	for _, kw := range kindKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.kind
		}
	}
	return KindOther
}

// URLSource tags where a candidate download URL came from.
type URLSource string

const (
	// SourceDirectBlob is a signed storage URL recovered from component
	// state. Time-limited but bypasses the application entirely.
	SourceDirectBlob URLSource = "direct-blob"
	// SourceAPI is a URL constructed from the file identifier and declared
	// type against the portal's API.
	SourceAPI URLSource = "api-constructed"
)

// CandidateURL is one possible download URL for a file.
type CandidateURL struct {
	URL    string    `json:"url"`
	Source URLSource `json:"source"`
}

// FileDescriptor is the normalized record of one downloadable file,
// independent of the rendering framework that exposed it. Created during
// extraction, consumed once by the resolver, never mutated.
type FileDescriptor struct {
	FileID     string         `json:"file_id"`
	Name       string         `json:"name"`
	Kind       FileKind       `json:"kind"`
	Section    string         `json:"section,omitempty"`
	Attachment bool           `json:"attachment"`
	PlainText  bool           `json:"plain_text"`
	Candidates []CandidateURL `json:"candidates,omitempty"`
}

// Candidate returns the first candidate with the given source tag.
func (d FileDescriptor) Candidate(src URLSource) (CandidateURL, bool) {
	for _, c := range d.Candidates {
		if c.Source == src {
			return c, true
		}
	}
	return CandidateURL{}, false
}

// Strategy is how a resolved file will be acquired. Exactly one strategy is
// chosen per descriptor, never both, so a file is never downloaded twice.
type Strategy string

const (
	// StrategyLinkFetch downloads a resolved URL directly over HTTP.
	StrategyLinkFetch Strategy = "link-fetch"
	// StrategyClick simulates the UI interaction sequence and captures the
	// browser-initiated save. Fallback when no URL could be extracted.
	StrategyClick Strategy = "simulated-interaction"
)

// ResolvedDownload pairs a descriptor with its chosen acquisition strategy.
// URL is non-empty exactly when Strategy is StrategyLinkFetch.
type ResolvedDownload struct {
	Descriptor FileDescriptor `json:"descriptor"`
	Strategy   Strategy       `json:"strategy"`
	URL        string         `json:"url,omitempty"`
	Source     URLSource      `json:"source,omitempty"`
}
