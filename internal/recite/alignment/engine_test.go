package alignment_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/recite/alignment"
	"github.com/escalopa/quran-recite-checker/internal/recite/similarity"
)

const (
	unset     = domain.StatusUnset
	correct   = domain.StatusCorrect
	incorrect = domain.StatusIncorrect
)

func expected(words ...string) []domain.ExpectedWord {
	out := make([]domain.ExpectedWord, len(words))
	for i, w := range words {
		out[i] = domain.ExpectedWord{Index: i, Original: w, Normalized: w, Sura: 1, Aya: 1, WordID: i + 1, Page: 1}
	}
	return out
}

var basmala = expected("بسم", "الله", "الرحمن", "الرحيم")

type recordingObserver struct {
	events []domain.StatusEvent
	skips  []domain.SkipSpan
}

func (r *recordingObserver) StatusChanged(ev domain.StatusEvent) { r.events = append(r.events, ev) }
func (r *recordingObserver) WordsSkipped(span domain.SkipSpan)   { r.skips = append(r.skips, span) }

func TestFeed_DirectMatches(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	e.Start(basmala)

	res := e.Feed([]string{"بسم", "الله"})

	assert.Equal(t, 2, e.Cursor())
	assert.Equal(t, []domain.WordStatus{correct, correct, unset, unset}, e.Statuses())
	assert.Equal(t, []domain.StatusEvent{{Index: 0, Status: correct}, {Index: 1, Status: correct}}, res.Events)
	assert.Empty(t, res.Skips)
	assert.True(t, res.Advanced)
	assert.Equal(t, 2, res.Cursor)
}

func TestFeed_LookaheadMarksSkipped(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	e := alignment.New(alignment.WithObserver(obs))
	e.Start(basmala)

	res := e.Feed([]string{"بسم", "الرحمن"})

	assert.Equal(t, 3, e.Cursor())
	assert.Equal(t, []domain.WordStatus{correct, incorrect, correct, unset}, e.Statuses())
	assert.Equal(t, []domain.SkipSpan{{From: 1, To: 2}}, res.Skips)
	assert.Equal(t, []domain.StatusEvent{
		{Index: 0, Status: correct},
		{Index: 1, Status: incorrect},
		{Index: 2, Status: correct},
	}, res.Events)

	assert.Equal(t, res.Events, obs.events)
	assert.Equal(t, res.Skips, obs.skips)
}

func TestFeed_SingleSkipSignalForSpan(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	e := alignment.New(alignment.WithObserver(obs))
	e.Start(expected("بسم", "كتاب", "نور", "شمس", "قمر"))

	e.Feed([]string{"شمس"})

	assert.Equal(t, []domain.WordStatus{incorrect, incorrect, incorrect, correct, unset}, e.Statuses())
	require.Len(t, obs.skips, 1)
	assert.Equal(t, 3, obs.skips[0].Len())
	assert.Len(t, obs.events, 4)
}

func TestFeed_NoiseDiscarded(t *testing.T) {
	t.Parallel()

	for _, chunk := range [][]string{{"xyz"}, {"قلم"}, {"", "  "}} {
		e := alignment.New()
		e.Start(basmala)

		res := e.Feed(chunk)

		assert.Equal(t, 0, e.Cursor(), "chunk %q", chunk)
		assert.Empty(t, res.Events)
		assert.False(t, res.Advanced)
		assert.Equal(t, []domain.WordStatus{unset, unset, unset, unset}, e.Statuses())
	}
}

func TestFeed_DiacritizedInputNormalized(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	e.Start(basmala)

	e.Feed([]string{"بِسْمِ", "ٱللَّهِ"})

	assert.Equal(t, 2, e.Cursor())
}

func TestFeed_LookaheadWindow(t *testing.T) {
	t.Parallel()

	words := expected("بسم", "كتاب", "نور", "شمس", "قمر", "ارض", "جبل")

	e := alignment.New()
	e.Start(words)
	e.Feed([]string{"ارض"})
	assert.Equal(t, 0, e.Cursor(), "index 5 is outside the default window")

	e.Feed([]string{"قمر"})
	assert.Equal(t, 5, e.Cursor())
	assert.Equal(t, []domain.WordStatus{incorrect, incorrect, incorrect, incorrect, correct, unset, unset}, e.Statuses())

	wide := alignment.New(alignment.WithLookaheadWindow(7))
	wide.Start(words)
	wide.Feed([]string{"جبل"})
	assert.Equal(t, 7, wide.Cursor())

	none := alignment.New(alignment.WithLookaheadWindow(1))
	none.Start(words)
	none.Feed([]string{"كتاب"})
	assert.Equal(t, 0, none.Cursor())
}

func TestFeed_Thresholds(t *testing.T) {
	t.Parallel()

	// "الرحمن" vs "الرحيم" scores 10/12.
	words := expected("الرحيم", "ملك")

	e := alignment.New()
	e.Start(words)
	e.Feed([]string{"الرحمن"})
	assert.Equal(t, []domain.WordStatus{correct, unset}, e.Statuses())

	strict := alignment.New(alignment.WithDirectThreshold(0.9), alignment.WithLookaheadThreshold(0.9))
	strict.Start(words)
	strict.Feed([]string{"الرحمن"})
	assert.Equal(t, 0, strict.Cursor())
}

func TestFeed_CustomScorer(t *testing.T) {
	t.Parallel()

	exact := similarity.ScorerFunc(func(a, b string) float64 {
		if a != "" && a == b {
			return 1
		}
		return 0
	})

	e := alignment.New(alignment.WithScorer(exact))
	e.Start(basmala)
	e.Feed([]string{"الرحمان", "بسم"})

	assert.Equal(t, 1, e.Cursor())
}

func TestFeed_PastEndIsNoOp(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	e.Start(basmala)
	e.Feed([]string{"بسم", "الله", "الرحمن", "الرحيم", "الرحيم"})
	require.Equal(t, 4, e.Cursor())

	res := e.Feed([]string{"بسم"})
	assert.Empty(t, res.Events)
	assert.Equal(t, 4, e.Cursor())
}

func TestFeed_IdleIsNoOp(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	res := e.Feed([]string{"بسم"})
	assert.Empty(t, res.Events)
	assert.Equal(t, alignment.StateIdle, e.State())

	e.Start(basmala)
	e.Feed([]string{"بسم"})
	e.Stop()

	res = e.Feed([]string{"الله"})
	assert.Empty(t, res.Events)
	assert.Equal(t, 1, e.Cursor())
	assert.Equal(t, correct, e.Status(0), "statuses survive stop")
	assert.Equal(t, unset, e.Status(1))
}

func TestFeedText_Muqattaat(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	e.Start(expected("الم", "ذالك", "الكتاب"))

	e.FeedText("الف لام ميم ذلك الكتاب")

	assert.Equal(t, 3, e.Cursor())
	assert.Equal(t, []domain.WordStatus{correct, correct, correct}, e.Statuses())
}

func TestStop_ReportOverReachedWords(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	e.Start(basmala)
	e.Feed([]string{"بسم", "الله"})

	report := e.Stop()

	assert.Equal(t, alignment.StateIdle, e.State())
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Reached)
	assert.Equal(t, 2, report.Correct)
	assert.Equal(t, 0, report.Incorrect)
	assert.InDelta(t, 1.0, report.Ratio, 1e-9)
	assert.Equal(t, []domain.WordStatus{correct, correct, unset, unset}, report.Statuses)
}

func TestStart_ResetsSession(t *testing.T) {
	t.Parallel()

	e := alignment.New()
	e.Start(basmala)
	e.Feed([]string{"بسم"})
	e.Stop()

	e.Start(basmala)
	assert.Equal(t, 0, e.Cursor())
	assert.Equal(t, []domain.WordStatus{unset, unset, unset, unset}, e.Statuses())
	assert.Equal(t, unset, e.Status(-1))
	assert.Equal(t, unset, e.Status(99))
}

func TestFeed_Invariants(t *testing.T) {
	t.Parallel()

	fatiha := expected(
		"بسم", "الله", "الرحمن", "الرحيم", "الحمد", "لله", "رب", "العالمين",
		"الرحمن", "الرحيم", "مالك", "يوم", "الدين", "اياك", "نعبد", "واياك", "نستعين",
	)
	noise := []string{"قلم", "xyz", "", "شجر", "ماء"}

	rng := rand.New(rand.NewPCG(1, 2))
	var chunks [][]string
	for range 200 {
		chunk := make([]string, rng.IntN(4)+1)
		for i := range chunk {
			if rng.IntN(4) == 0 {
				chunk[i] = noise[rng.IntN(len(noise))]
			} else {
				chunk[i] = fatiha[rng.IntN(len(fatiha))].Normalized
			}
		}
		chunks = append(chunks, chunk)
	}

	run := func() (*alignment.Engine, []int) {
		e := alignment.New()
		e.Start(fatiha)
		var cursors []int
		prev := 0
		for _, c := range chunks {
			e.Feed(c)
			cur := e.Cursor()
			require.GreaterOrEqual(t, cur, prev, "cursor moved backwards")
			require.LessOrEqual(t, cur, e.Len())
			for i := 0; i < e.Len(); i++ {
				if i < cur {
					require.NotEqual(t, unset, e.Status(i), "index %d behind cursor is unset", i)
				} else {
					require.Equal(t, unset, e.Status(i), "index %d ahead of cursor is set", i)
				}
			}
			prev = cur
			cursors = append(cursors, cur)
		}
		return e, cursors
	}

	a, aCursors := run()
	b, bCursors := run()
	assert.Equal(t, aCursors, bCursors)
	assert.Equal(t, a.Statuses(), b.Statuses())
	assert.Equal(t, a.Cursor(), b.Cursor())
}
