// Package normalize canonicalizes Arabic words so that Mushaf text and
// speech recognizer output can be compared letter by letter.
//
// Normalization folds presentation forms (NFKC), turns the dagger alef into
// a plain alef, strips tashkil, Quranic annotation signs and tatweel, drops
// everything outside the Arabic block except digits, unifies letter variants
// (hamza-bearing and wasla alef to alef, word-final teh marbuta to heh, alef
// maksura to yeh) and finally removes all whitespace.
//
// Spelled-out muqatta'at ("الف لام ميم") are replaced by the symbol written
// in the Mushaf ("الم") so that a reciter naming the letters still matches.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
//
// All functions are safe for concurrent use by multiple goroutines.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	alef        = 'ا'
	daggerAlef  = 'ٰ'
	tatweel     = 'ـ'
	tehMarbuta  = 'ة'
	heh         = 'ه'
	alefMaksura = 'ى'
	yeh         = 'ي'
	hamza       = 'ء'
)

// quranicMarks are annotation signs written around the letters: honorific
// ligatures, pause marks, small letters, the end-of-ayah and rub el hizb signs.
var quranicMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061A, Stride: 1},
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06ED, Stride: 1},
		{Lo: 0x08D3, Hi: 0x08FF, Stride: 1},
	},
}

// Normalize returns the canonical form of a single word.
// Returns "" for empty, whitespace-only or fully stripped input; callers
// must treat "" as not matchable.
func Normalize(raw string) string {
	fields := foldFields(raw)
	if len(fields) == 0 {
		return ""
	}
	if sym, ok := lookupMuqattaat(fields); ok {
		return sym
	}
	return strings.Join(fields, "")
}

// Words splits a recognizer transcript into normalized words. Runs of
// tokens spelling a muqatta'at opening are merged into its symbol, and
// tokens that normalize to "" are dropped.
func Words(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = compactKey(foldFields(tok))
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if sym, n := matchPhrase(keys[i:]); n > 0 {
			out = append(out, sym)
			i += n
			continue
		}
		if w := Normalize(tokens[i]); w != "" {
			out = append(out, w)
		}
		i++
	}
	return out
}

// foldFields applies the rune-level folding and returns the remaining
// whitespace-separated fields with word-final teh marbuta unified.
func foldFields(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	folded, _, err := transform.String(newFolder(), s)
	if err != nil {
		return nil
	}

	fields := strings.Fields(folded)
	for i, f := range fields {
		if r := []rune(f); r[len(r)-1] == tehMarbuta {
			r[len(r)-1] = heh
			fields[i] = string(r)
		}
	}
	return fields
}

// newFolder builds the rune pipeline. Transformers carry state, so every
// call gets its own chain.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFKC,
		runes.Map(func(r rune) rune {
			if r == daggerAlef {
				return alef
			}
			return r
		}),
		runes.Remove(runes.Predicate(stripped)),
		runes.Map(unifyLetter),
	)
}

func stripped(r rune) bool {
	if r == tatweel || unicode.Is(quranicMarks, r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	return !kept(r)
}

func kept(r rune) bool {
	switch {
	case unicode.IsSpace(r):
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x0600 && r <= 0x06FF:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	return false
}

func unifyLetter(r rune) rune {
	switch r {
	case 'آ', 'أ', 'إ', 'ٱ':
		return alef
	case alefMaksura:
		return yeh
	}
	return r
}
