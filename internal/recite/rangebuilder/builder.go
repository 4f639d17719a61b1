// Package rangebuilder turns a (from, to) ayah range into the flat list of
// words a reciter is expected to say.
package rangebuilder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/recite/normalize"
)

// Builder builds ranges from a Mushaf source.
type Builder struct {
	source domain.MushafPort
	logger *zap.Logger
}

// New returns a builder reading tokens from source. A nil logger is a no-op.
func New(source domain.MushafPort, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{source: source, logger: logger}
}

// Build walks the Mushaf in reading order and collects every recitable word
// from the first token of `from` up to and including the last token of `to`.
//
// Ayah-number markers and tokens that normalize to "" are skipped. A range
// with no recitable words is returned empty with a nil error; callers check
// Range.Empty. domain.ErrInvalidRange is returned when from is after to or
// from does not exist in the Mushaf.
func (b *Builder) Build(from, to domain.Position) (*domain.Range, error) {
	if from.Compare(to) > 0 {
		return nil, fmt.Errorf("%w: %s is after %s", domain.ErrInvalidRange, from, to)
	}

	r := &domain.Range{From: from, To: to}
	started := false
	for tok := range b.source.Tokens() {
		pos := tok.Position()
		if !started {
			if pos != from {
				continue
			}
			started = true
		}
		if pos.Compare(to) > 0 {
			break
		}
		if IsAyahMarker(tok.Text) {
			continue
		}

		norm := normalize.Normalize(tok.Text)
		if norm == "" {
			continue
		}

		r.Words = append(r.Words, domain.ExpectedWord{
			Index:      len(r.Words),
			Original:   tok.Text,
			Normalized: norm,
			Sura:       tok.Sura,
			Aya:        tok.Aya,
			WordID:     tok.WordID,
			Page:       tok.Page,
		})
	}

	if !started {
		return nil, fmt.Errorf("%w: %s not found in mushaf", domain.ErrInvalidRange, from)
	}

	if r.Empty() {
		b.logger.Warn("recitation range has no recitable words",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	} else {
		b.logger.Debug("recitation range built",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Int("words", r.Len()),
			zap.Int("first_page", r.FirstPage()),
		)
	}

	return r, nil
}

// IsAyahMarker reports whether text is an ayah-number marker: Arabic-Indic
// numerals, optionally wrapped in the end-of-ayah sign or ornate parentheses.
func IsAyahMarker(text string) bool {
	text = strings.TrimSpace(text)
	digits := 0
	for _, r := range text {
		switch {
		case r >= '٠' && r <= '٩', r >= '۰' && r <= '۹':
			digits++
		case r == '۝', r == '﴿', r == '﴾':
		default:
			return false
		}
	}
	return digits > 0
}
