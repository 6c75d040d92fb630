// Package extract normalizes raw component state into file descriptors and
// resolves each descriptor to a single download strategy.
package extract

import (
	"fmt"
	"strconv"

	"github.com/civicgrab/civicgrab/internal/model"
)

// Declared file types carried by the portal's remote-file objects.
const (
	fileTypeMeetingFile = 1
	fileTypeAttachment  = 3
)

// Descriptor normalizes a nested remote-file object into a FileDescriptor.
// remote may be nil: files whose state is not exposed come through with an
// empty candidate set, which is an expected case (the resolver marks them
// click-required), not an error. attachmentHint sets the attachment flag when
// the object does not declare a fileType itself.
func Descriptor(displayName string, plainText, attachmentHint bool, remote map[string]any) model.FileDescriptor {
	d := model.FileDescriptor{
		Name:       displayName,
		Kind:       model.ClassifyKind(displayName),
		Attachment: attachmentHint,
		PlainText:  plainText,
	}
	if remote == nil {
		return d
	}

	d.FileID = stringField(remote, "fileId")
	if name := stringField(remote, "name"); name != "" {
		d.Name = name
		d.Kind = model.ClassifyKind(name)
	}
	if ft, ok := intField(remote, "fileType"); ok {
		d.Attachment = ft == fileTypeAttachment
	}
	if stream := stringField(remote, "streamUrl"); stream != "" {
		d.Candidates = append(d.Candidates, model.CandidateURL{
			URL:    stream,
			Source: model.SourceDirectBlob,
		})
	}
	return d
}

// stringField reads a field that may arrive as a string or a JSON number.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Options configures resolution.
type Options struct {
	// APIBaseURL is the portal API root used to construct identifier-based
	// URLs, e.g. "https://example.api.civicclerk.com/v1/".
	APIBaseURL string
	// ForceClick routes every descriptor to the simulated-interaction
	// strategy regardless of extractable URLs.
	ForceClick bool
}

// Resolve chooses exactly one acquisition strategy for a descriptor.
//
// Precedence, highest first:
//  1. A signed storage URL recovered from component state, used verbatim.
//     Fastest and least fragile to markup changes, but time-limited.
//  2. A URL constructed from the file identifier and declared type against
//     the portal API. Stable, but needs the identifier/type pairing.
//  3. Neither: the descriptor is marked click-required and the orchestrator
//     falls back to UI simulation.
//
// A ResolvedDownload never carries an empty URL with the link-fetch strategy.
func Resolve(d model.FileDescriptor, opts Options) model.ResolvedDownload {
	if opts.ForceClick {
		return model.ResolvedDownload{Descriptor: d, Strategy: model.StrategyClick}
	}

	if c, ok := d.Candidate(model.SourceDirectBlob); ok && c.URL != "" {
		return model.ResolvedDownload{
			Descriptor: d,
			Strategy:   model.StrategyLinkFetch,
			URL:        c.URL,
			Source:     model.SourceDirectBlob,
		}
	}

	if d.FileID != "" && opts.APIBaseURL != "" {
		return model.ResolvedDownload{
			Descriptor: d,
			Strategy:   model.StrategyLinkFetch,
			URL:        apiURL(d, opts.APIBaseURL),
			Source:     model.SourceAPI,
		}
	}

	return model.ResolvedDownload{Descriptor: d, Strategy: model.StrategyClick}
}

// apiURL builds the identifier-based download URL. Attachments and meeting
// files go through different API operations.
func apiURL(d model.FileDescriptor, base string) string {
	if d.Attachment {
		return fmt.Sprintf("%sMeetings/GetAttachmentFile(fileId=%s)", base, d.FileID)
	}
	return fmt.Sprintf("%sMeetings/GetMeetingFileStream(fileId=%s,plainText=%t)", base, d.FileID, d.PlainText)
}
