package pipeline

import (
	"strings"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

// Display accumulates recognizer output for showing to the reciter. Final
// transcripts are committed; a partial one is shown after them until the
// next transcript replaces it.
type Display struct {
	committed []string
	partial   string
}

// Add merges tr and returns the text to show.
func (d *Display) Add(tr domain.Transcript) string {
	text := strings.TrimSpace(tr.Text)
	if tr.Final {
		if text != "" {
			d.committed = append(d.committed, text)
		}
		d.partial = ""
	} else {
		d.partial = text
	}
	return d.String()
}

func (d *Display) String() string {
	parts := d.committed
	if d.partial != "" {
		parts = append(parts[:len(parts):len(parts)], d.partial)
	}
	return strings.Join(parts, " ")
}

// Reset clears everything.
func (d *Display) Reset() {
	d.committed = nil
	d.partial = ""
}
