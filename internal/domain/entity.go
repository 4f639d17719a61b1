package domain

import (
	"fmt"
	"time"
)

// Surah represents a chapter in the Quran
type Surah struct {
	Number int
	Name   string
	Ayahs  int
}

// Position is a (sura, aya) pair in reading order
type Position struct {
	Sura int `json:"sura" yaml:"sura"`
	Aya  int `json:"aya" yaml:"aya"`
}

// Compare orders positions by sura first, then aya.
func (p Position) Compare(o Position) int {
	switch {
	case p.Sura < o.Sura:
		return -1
	case p.Sura > o.Sura:
		return 1
	case p.Aya < o.Aya:
		return -1
	case p.Aya > o.Aya:
		return 1
	}
	return 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Sura, p.Aya)
}

// MushafToken is one token of the printed Mushaf in reading order
type MushafToken struct {
	Sura   int
	Aya    int
	WordID int
	Text   string
	Page   int
	Line   int
}

// Position returns the sura/aya the token belongs to
func (t MushafToken) Position() Position {
	return Position{Sura: t.Sura, Aya: t.Aya}
}

// ExpectedWord is a recitable word of a session range
type ExpectedWord struct {
	Index      int    `json:"index"`
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Sura       int    `json:"sura"`
	Aya        int    `json:"aya"`
	WordID     int    `json:"word_id"`
	Page       int    `json:"page"`
}

// WordStatus is the judgment of a single expected word
type WordStatus int

const (
	StatusUnset WordStatus = iota
	StatusCorrect
	StatusIncorrect
)

func (s WordStatus) String() string {
	switch s {
	case StatusCorrect:
		return "correct"
	case StatusIncorrect:
		return "incorrect"
	default:
		return "unset"
	}
}

// StatusEvent reports a status change for the word at Index
type StatusEvent struct {
	Index  int
	Status WordStatus
}

// SkipSpan covers expected words jumped over during lookahead, [From, To)
type SkipSpan struct {
	From int
	To   int
}

// Len returns the number of skipped words
func (s SkipSpan) Len() int {
	return s.To - s.From
}

// Transcript is one chunk of recognizer output
type Transcript struct {
	Text  string `json:"text"`
	Final bool   `json:"is_final"`
}

// ChunkUpdate is what the render side receives after one recognized chunk
type ChunkUpdate struct {
	SessionID string
	Transcript
	// Display is the accumulated transcript text for showing to the user
	Display  string
	Events   []StatusEvent
	Skips    []SkipSpan
	Cursor   int
	Statuses []WordStatus
}

// FinalReport summarises a stopped session
type FinalReport struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id,omitempty"`
	From      Position     `json:"from"`
	To        Position     `json:"to"`
	Statuses  []WordStatus `json:"statuses"`
	Total     int          `json:"total"`
	Reached   int          `json:"reached"`
	Correct   int          `json:"correct"`
	Incorrect int          `json:"incorrect"`
	// Ratio is Correct/Reached; unreached words do not count
	Ratio     float64   `json:"ratio"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
}

// NewFinalReport tallies statuses into a report
func NewFinalReport(statuses []WordStatus) FinalReport {
	r := FinalReport{
		Statuses: append([]WordStatus(nil), statuses...),
		Total:    len(statuses),
	}
	for _, s := range statuses {
		switch s {
		case StatusCorrect:
			r.Correct++
			r.Reached++
		case StatusIncorrect:
			r.Incorrect++
			r.Reached++
		}
	}
	if r.Reached > 0 {
		r.Ratio = float64(r.Correct) / float64(r.Reached)
	}
	return r
}

// Language represents supported languages
type Language string

const (
	LangEnglish Language = "en"
	LangArabic  Language = "ar"
	LangRussian Language = "ru"
)
