// Package similarity scores how alike two normalized words are.
//
// The default scorer is the Ratcliff/Obershelp ratio 2*M/T, where M is the
// number of runes in the matching blocks found by recursive longest common
// substring search and T is the total rune count of both words. Jaro-Winkler
// and a Levenshtein ratio are available as alternatives.
//
// Every scorer returns a value in [0, 1], returns 0 when either word is
// empty, returns 1 for identical non-empty words and is symmetric.
package similarity

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/pmezard/go-difflib/difflib"
)

// Default thresholds used by the alignment engine.
const (
	// DirectThreshold accepts the word at the cursor. It is lenient because
	// the recognizer is expected to be saying the next word.
	DirectThreshold = 0.65

	// LookaheadThreshold accepts a word further ahead, which marks every word
	// in between as skipped, so it must not trigger on noise.
	LookaheadThreshold = 0.75
)

// Scorer compares two normalized words.
type Scorer interface {
	Score(a, b string) float64
}

// ScorerFunc adapts a plain function to [Scorer].
type ScorerFunc func(a, b string) float64

// Score calls f(a, b).
func (f ScorerFunc) Score(a, b string) float64 {
	return f(a, b)
}

// Scorer names accepted by [ByName].
const (
	NameRatcliff    = "ratcliff"
	NameJaroWinkler = "jarowinkler"
	NameLevenshtein = "levenshtein"
)

// ByName returns the scorer registered under name. An empty name selects
// the Ratcliff/Obershelp ratio.
func ByName(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameRatcliff:
		return ScorerFunc(Ratio), nil
	case NameJaroWinkler:
		return ScorerFunc(JaroWinkler), nil
	case NameLevenshtein:
		return ScorerFunc(LevenshteinRatio), nil
	}
	return nil, fmt.Errorf("unknown similarity scorer %q", name)
}

// Ratio returns the Ratcliff/Obershelp similarity of a and b.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	// Longest-match tie breaking depends on argument order; fixing the
	// order keeps the score symmetric.
	a, b = ordered(a, b)
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b.
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	a, b = ordered(a, b)
	return clamp(matchr.JaroWinkler(a, b, false))
}

// LevenshteinRatio returns 1 - d/max(len(a), len(b)) over runes, where d is
// the Levenshtein distance.
func LevenshteinRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	return clamp(1 - float64(matchr.Levenshtein(a, b))/float64(longest))
}

func ordered(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
