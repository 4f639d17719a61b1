package similarity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/quran-recite-checker/internal/recite/similarity"
)

var words = []string{
	"بسم", "الله", "الرحمن", "الرحيم", "الحمدلله", "رب", "العالمين",
	"مالك", "ملك", "يوم", "الدين", "اياك", "نعبد", "نستعين", "ا", "ab", "ba",
}

func TestRatio_KnownScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "الرحمن", "الرحمن", 1},
		{"shared prefix only", "الله", "الرحمن", 0.4},
		{"one letter apart", "الرحمن", "الرحيم", 10.0 / 12.0},
		{"disjoint", "بسم", "نعبد", 2.0 / 7.0},
		{"empty left", "", "بسم", 0},
		{"empty right", "بسم", "", 0},
		{"both empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, similarity.Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorers_Properties(t *testing.T) {
	t.Parallel()

	for _, name := range []string{similarity.NameRatcliff, similarity.NameJaroWinkler, similarity.NameLevenshtein} {
		scorer, err := similarity.ByName(name)
		require.NoError(t, err)

		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for _, a := range words {
				assert.Equal(t, 1.0, scorer.Score(a, a), "identity %q", a)
				assert.Equal(t, 0.0, scorer.Score(a, ""), "empty %q", a)

				for _, b := range words {
					ab := scorer.Score(a, b)
					assert.Equal(t, ab, scorer.Score(b, a), "symmetry %q %q", a, b)
					assert.GreaterOrEqual(t, ab, 0.0)
					assert.LessOrEqual(t, ab, 1.0)
				}
			}
		})
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	s, err := similarity.ByName("")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, s.Score("الله", "الرحمن"), 1e-9)

	s, err = similarity.ByName(" Levenshtein ")
	require.NoError(t, err)
	assert.InDelta(t, 1-2.0/6.0, s.Score("الرحمن", "الرحيم"), 1e-9)

	_, err = similarity.ByName("soundex")
	require.Error(t, err)
}

func TestThresholdOrdering(t *testing.T) {
	t.Parallel()

	assert.Less(t, similarity.DirectThreshold, similarity.LookaheadThreshold)
}
