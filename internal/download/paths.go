package download

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/civicgrab/civicgrab/internal/model"
)

// MeetingDir is the per-meeting destination directory:
// event_<id>_<date>_<sanitized-title>. The layout is deterministic so reruns
// land in the same place.
func MeetingDir(root string, m model.Meeting) string {
	date := "unknown-date"
	if m.HasDate() {
		date = m.Date.Format("2006-01-02")
	}
	name := fmt.Sprintf("event_%s_%s_%s", m.ID, date, Sanitize(m.Title))
	return filepath.Join(root, strings.TrimSuffix(name, "_"))
}

// Filename derives the destination filename for a descriptor. The file
// identifier is appended when known so two files sharing a display name (and
// kind) can never silently overwrite each other.
func Filename(d model.FileDescriptor) string {
	base := Sanitize(d.Name)
	if base == "" {
		base = "file"
	}
	if d.FileID != "" {
		base += "_" + d.FileID
	}
	return base + extensionFor(d)
}

func extensionFor(d model.FileDescriptor) string {
	if d.PlainText {
		return ".txt"
	}
	return ".pdf"
}

// foldAccents strips combining marks after NFD decomposition, so "Agenda
// révisé" sanitizes to "Agenda-revise" rather than losing the letters.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize reduces a display string to a safe path component: accents
// folded, anything outside word characters/spaces/hyphens dropped, runs of
// whitespace and hyphens collapsed to a single hyphen.
func Sanitize(s string) string {
	if folded, _, err := transform.String(foldAccents, s); err == nil {
		s = folded
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			b.WriteRune('-')
		}
	}

	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}
