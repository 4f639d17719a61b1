// Package alignment follows a reciter through the expected words of a
// session and judges every word as it is reached.
//
// The engine keeps a cursor on the next expected word. Each recognized word
// is first compared with the word at the cursor; when that fails, the next
// few words are searched with a stricter threshold and every word jumped
// over is marked incorrect. Words matching neither are treated as noise.
//
// The cursor never moves backwards within a session, so a reciter going
// back to repeat an ayah is not followed.
//
// An Engine is not safe for concurrent use: a single consumer must own it.
package alignment

import (
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/recite/normalize"
	"github.com/escalopa/quran-recite-checker/internal/recite/similarity"
)

// DefaultLookaheadWindow bounds the lookahead search to
// expected[cursor+1 : cursor+DefaultLookaheadWindow].
const DefaultLookaheadWindow = 5

// State is the lifecycle state of an [Engine].
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// Observer is notified of judgments as they happen. Calls are made
// synchronously from Feed.
type Observer interface {
	// StatusChanged is called once per word whose status changed.
	StatusChanged(ev domain.StatusEvent)

	// WordsSkipped is called once per lookahead jump, for the whole span.
	WordsSkipped(span domain.SkipSpan)
}

// FeedResult describes what a single Feed call changed.
type FeedResult struct {
	Events []domain.StatusEvent
	Skips  []domain.SkipSpan
	// Cursor is the cursor after the chunk
	Cursor int
	// Advanced is true when the cursor moved during the chunk
	Advanced bool
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithScorer replaces the Ratcliff/Obershelp scorer.
func WithScorer(s similarity.Scorer) Option {
	return func(e *Engine) {
		e.scorer = s
	}
}

// WithDirectThreshold sets the score a word must exceed to match the word at
// the cursor. Default: 0.65.
func WithDirectThreshold(v float64) Option {
	return func(e *Engine) {
		e.directThreshold = v
	}
}

// WithLookaheadThreshold sets the score a word must exceed to match a word
// ahead of the cursor. Default: 0.75.
func WithLookaheadThreshold(v float64) Option {
	return func(e *Engine) {
		e.lookaheadThreshold = v
	}
}

// WithLookaheadWindow sets the exclusive upper offset of the lookahead
// search relative to the cursor. Values below 2 disable lookahead.
// Default: 5.
func WithLookaheadWindow(n int) Option {
	return func(e *Engine) {
		e.window = n
	}
}

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Engine aligns recognized words against one session's expected words.
type Engine struct {
	scorer             similarity.Scorer
	directThreshold    float64
	lookaheadThreshold float64
	window             int
	observers          []Observer
	logger             *zap.Logger

	state    State
	words    []domain.ExpectedWord
	statuses []domain.WordStatus
	cursor   int
}

// New returns an idle engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		scorer:             similarity.ScorerFunc(similarity.Ratio),
		directThreshold:    similarity.DirectThreshold,
		lookaheadThreshold: similarity.LookaheadThreshold,
		window:             DefaultLookaheadWindow,
		logger:             zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start begins a session over words, discarding the previous session's
// results. The slice is shared, not copied, and must not be modified.
func (e *Engine) Start(words []domain.ExpectedWord) {
	e.words = words
	e.statuses = make([]domain.WordStatus, len(words))
	e.cursor = 0
	e.state = StateActive
}

// Stop ends the session. Statuses stay readable until the next Start.
func (e *Engine) Stop() domain.FinalReport {
	e.state = StateIdle
	return domain.NewFinalReport(e.statuses)
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Cursor returns the index of the next expected word.
func (e *Engine) Cursor() int {
	return e.cursor
}

// Len returns the number of expected words in the session.
func (e *Engine) Len() int {
	return len(e.words)
}

// Status returns the status of the word at index, or StatusUnset when
// index is out of range.
func (e *Engine) Status(index int) domain.WordStatus {
	if index < 0 || index >= len(e.statuses) {
		return domain.StatusUnset
	}
	return e.statuses[index]
}

// Statuses returns a copy of all statuses.
func (e *Engine) Statuses() []domain.WordStatus {
	return append([]domain.WordStatus(nil), e.statuses...)
}

// FeedText tokenizes and normalizes a recognizer transcript, then feeds it.
func (e *Engine) FeedText(text string) FeedResult {
	return e.feed(normalize.Words(text))
}

// Feed consumes one chunk of recognized words. Words are normalized first;
// words normalizing to "" are skipped. Feeding an idle engine is a no-op.
func (e *Engine) Feed(words []string) FeedResult {
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalize.Normalize(w); n != "" {
			normalized = append(normalized, n)
		}
	}
	return e.feed(normalized)
}

func (e *Engine) feed(words []string) FeedResult {
	res := FeedResult{Cursor: e.cursor}
	if e.state != StateActive {
		e.logger.Debug("feed on idle engine ignored", zap.Int("words", len(words)))
		return res
	}

	start := e.cursor
	for _, w := range words {
		if e.cursor >= len(e.words) {
			break
		}

		if e.scorer.Score(w, e.words[e.cursor].Normalized) > e.directThreshold {
			e.accept(&res)
			continue
		}

		i, ok := e.lookahead(w)
		if !ok {
			e.logger.Debug("recognized word discarded",
				zap.String("word", w),
				zap.Int("cursor", e.cursor),
			)
			continue
		}

		span := domain.SkipSpan{From: e.cursor, To: i}
		for j := span.From; j < span.To; j++ {
			e.set(&res, j, domain.StatusIncorrect)
		}
		res.Skips = append(res.Skips, span)
		for _, o := range e.observers {
			o.WordsSkipped(span)
		}

		e.cursor = i
		e.accept(&res)
	}

	res.Cursor = e.cursor
	res.Advanced = e.cursor > start
	return res
}

// lookahead returns the first index after the cursor, within the window,
// whose word scores above the lookahead threshold.
func (e *Engine) lookahead(w string) (int, bool) {
	end := min(e.cursor+e.window, len(e.words))
	for i := e.cursor + 1; i < end; i++ {
		if e.scorer.Score(w, e.words[i].Normalized) > e.lookaheadThreshold {
			return i, true
		}
	}
	return 0, false
}

func (e *Engine) accept(res *FeedResult) {
	e.set(res, e.cursor, domain.StatusCorrect)
	e.cursor++
}

func (e *Engine) set(res *FeedResult, i int, s domain.WordStatus) {
	e.statuses[i] = s
	ev := domain.StatusEvent{Index: i, Status: s}
	res.Events = append(res.Events, ev)
	for _, o := range e.observers {
		o.StatusChanged(ev)
	}
}
