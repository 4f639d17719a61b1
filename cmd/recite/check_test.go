package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

func checkRange() *domain.Range {
	words := []struct {
		text string
		page int
	}{
		{"بسم", 1}, {"كتاب", 1}, {"نور", 1}, {"شمس", 1},
		{"قمر", 2}, {"ارض", 2}, {"جبل", 2}, {"بحر", 2},
	}
	r := &domain.Range{From: domain.Position{Sura: 1, Aya: 1}, To: domain.Position{Sura: 1, Aya: 2}}
	for i, w := range words {
		r.Words = append(r.Words, domain.ExpectedWord{
			Index: i, Original: w.text, Normalized: w.text, Sura: 1, Aya: 1 + i/4, WordID: i%4 + 1, Page: w.page,
		})
	}
	return r
}

func chunks(lines ...string) [][]byte {
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(l)
	}
	return out
}

func TestRunCheck(t *testing.T) {
	t.Parallel()

	rng := checkRange()
	src := checkSource{
		Name:       "t",
		Chunks:     chunks("بسم كتاب", "شمس قمر", "جبل"),
		Recognizer: textRecognizer{},
	}

	res, err := runCheck(context.Background(), rng, src)
	require.NoError(t, err)

	require.Len(t, res.Chunks, 3)
	assert.Equal(t, 2, res.Chunks[0].Cursor)
	assert.Equal(t, 5, res.Chunks[1].Cursor)
	assert.Equal(t, []domain.SkipSpan{{From: 2, To: 3}}, res.Chunks[1].Skips)
	assert.Equal(t, 7, res.Chunks[2].Cursor)
	assert.Equal(t, []domain.SkipSpan{{From: 5, To: 6}}, res.Chunks[2].Skips)
	assert.Equal(t, []int{2}, res.Flips)

	assert.Equal(t, 7, res.Report.Reached)
	assert.Equal(t, 5, res.Report.Correct)
	assert.Equal(t, 2, res.Report.Incorrect)
	assert.Equal(t, "+بسم +كتاب -نور +شمس +قمر -ارض +جبل ?بحر", formatStatuses(rng, res.Report.Statuses))
}

type failingRecognizer struct{}

func (failingRecognizer) Recognize(context.Context, io.Reader) (domain.Transcript, error) {
	return domain.Transcript{}, errors.New("offline")
}

func TestRunCheck_RecognizerFailure(t *testing.T) {
	t.Parallel()

	res, err := runCheck(context.Background(), checkRange(), checkSource{
		Name:       "audio",
		Chunks:     chunks("a", "b"),
		Recognizer: failingRecognizer{},
	})
	require.NoError(t, err)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "offline", res.Chunks[0].Error)
	assert.Equal(t, 0, res.Report.Reached)
}

func TestRunCheck_NoChunks(t *testing.T) {
	t.Parallel()

	res, err := runCheck(context.Background(), checkRange(), checkSource{Name: "empty", Recognizer: textRecognizer{}})
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, 8, res.Report.Total)
}

func TestReadTranscript_Stdin(t *testing.T) {
	t.Parallel()

	got, err := readTranscript(strings.NewReader("بسم الله\n\n  الرحمن  \n"), "-")
	require.NoError(t, err)
	assert.Equal(t, chunks("بسم الله", "الرحمن"), got)

	_, err = readTranscript(nil, "does-not-exist.txt")
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	rng := checkRange()
	res, err := runCheck(context.Background(), rng, checkSource{
		Name:       "fatiha.txt",
		Chunks:     chunks("بسم كتاب نور شمس قمر"),
		Recognizer: textRecognizer{},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	printResult(&buf, rng, res)

	out := buf.String()
	assert.Contains(t, out, "== fatiha.txt ==")
	assert.Contains(t, out, "-> cursor 5")
	assert.Contains(t, out, "page flip -> 2")
	assert.Contains(t, out, "reached 5/8, correct 5, incorrect 0, accuracy 100.0%")
}
