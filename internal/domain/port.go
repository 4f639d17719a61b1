package domain

import (
	"context"
	"io"
	"iter"
)

// MushafPort is the read-only text and layout oracle of the printed Mushaf
type MushafPort interface {
	// Tokens yields every token in reading order: by page, then line, then word
	Tokens() iter.Seq[MushafToken]

	// PageForGlobalIndex returns the page of the i-th token of Tokens
	PageForGlobalIndex(i int) (int, bool)

	// LastPage returns the number of the final page
	LastPage() int
}

// RecognizerPort turns recorded audio into text
type RecognizerPort interface {
	// Recognize transcribes a chunk of WAV audio
	Recognize(ctx context.Context, audio io.Reader) (Transcript, error)
}

// RenderPort receives the judgments of a running session.
// Implementations must not block the caller for long.
type RenderPort interface {
	// RenderChunk is called once per recognized chunk
	RenderChunk(ctx context.Context, update ChunkUpdate)

	// FlipPage asks the display to move to page. The display acknowledges
	// through the session once the flip is done.
	FlipPage(ctx context.Context, page int)

	// RecognitionUnavailable reports a recognizer failure. The session stays usable.
	RecognitionUnavailable(ctx context.Context, err error)
}

// FSMPort defines the interface for finite state machine storage
type FSMPort interface {
	// SetState sets the current state for a user
	SetState(ctx context.Context, userID string, state State) error

	// GetState gets the current state for a user
	GetState(ctx context.Context, userID string) (State, error)

	// DeleteState deletes the state for a user
	DeleteState(ctx context.Context, userID string) error

	// SetData sets temporary data for a user's current session
	SetData(ctx context.Context, userID, key, value string) error

	// GetData gets temporary data for a user's current session
	GetData(ctx context.Context, userID, key string) (string, error)

	// DeleteData deletes temporary data for a user
	DeleteData(ctx context.Context, userID, key string) error
}

// ReportStorePort persists final reports of finished sessions
type ReportStorePort interface {
	// SaveReport stores a report under its user
	SaveReport(ctx context.Context, report FinalReport) error

	// GetReport retrieves a single report
	GetReport(ctx context.Context, userID, reportID string) (*FinalReport, error)

	// ListReports lists the most recent reports of a user, newest first
	ListReports(ctx context.Context, userID string, limit int) ([]*FinalReport, error)
}

// I18nPort defines the interface for internationalization
type I18nPort interface {
	// Get retrieves a translated message
	Get(lang Language, key string, args ...interface{}) string

	// GetSurahName retrieves the localized name of a Surah
	GetSurahName(lang Language, surahNumber int) string
}

// BotPort defines the interface for the bot adapter
type BotPort interface {
	// Start starts the bot
	Start(ctx context.Context) error

	// Stop stops the bot
	Stop() error
}

// State represents the FSM states
type State string

const (
	StateStart          State = "start"
	StateSelectFromSura State = "select_from_sura"
	StateEnterFromAya   State = "enter_from_aya"
	StateSelectToSura   State = "select_to_sura"
	StateEnterToAya     State = "enter_to_aya"
	StateReciting       State = "reciting"
)

// SessionData keys
const (
	SessionKeyFromSura  = "from_sura"
	SessionKeyFromAya   = "from_aya"
	SessionKeyToSura    = "to_sura"
	SessionKeyToAya     = "to_aya"
	SessionKeyAyahInput = "ayah_input" // Accumulated digit input for ayah number
	SessionKeyLanguage  = "language"
)
