package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

type keyI18n struct{}

func (keyI18n) Get(_ domain.Language, key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return key + fmt.Sprint(args...)
}

func (keyI18n) GetSurahName(_ domain.Language, n int) string {
	return fmt.Sprintf("S%d", n)
}

type fakeSender struct {
	mu     sync.Mutex
	nextID int
	sent   []tgbotapi.Chattable
	failOn func(tgbotapi.Chattable) bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.failOn != nil && f.failOn(c) {
		return tgbotapi.Message{}, errors.New("message is not modified")
	}
	if edit, ok := c.(tgbotapi.EditMessageTextConfig); ok {
		return tgbotapi.Message{MessageID: edit.MessageID}, nil
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, "send:"+m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, fmt.Sprintf("edit%d:%s", m.MessageID, m.Text))
		}
	}
	return out
}

// renderRange holds two ayahs on page 2 and one on page 3.
func renderRange() *domain.Range {
	words := []struct {
		text     string
		aya, pag int
	}{
		{"ذَٰلِكَ", 2, 2}, {"ٱلْكِتَٰبُ", 2, 2}, {"لَا", 2, 2},
		{"ٱلَّذِينَ", 3, 2}, {"يُؤْمِنُونَ", 3, 2},
		{"وَٱلَّذِينَ", 4, 3},
	}
	r := &domain.Range{From: domain.Position{Sura: 2, Aya: 2}, To: domain.Position{Sura: 2, Aya: 4}}
	for i, w := range words {
		r.Words = append(r.Words, domain.ExpectedWord{Index: i, Original: w.text, Sura: 2, Aya: w.aya, Page: w.pag})
	}
	return r
}

func TestFormatPage(t *testing.T) {
	t.Parallel()

	rng := renderRange()
	c, i, u := domain.StatusCorrect, domain.StatusIncorrect, domain.StatusUnset

	tests := []struct {
		name     string
		page     int
		statuses []domain.WordStatus
		want     string
	}{
		{
			name:     "nothing reached",
			page:     2,
			statuses: []domain.WordStatus{u, u, u, u, u, u},
			want:     "… (2) … (3)",
		},
		{
			name:     "mixed",
			page:     2,
			statuses: []domain.WordStatus{c, i, c, c, u, u},
			want:     "<b>ذَٰلِكَ</b> <s>ٱلْكِتَٰبُ</s> <b>لَا</b> (2) <b>ٱلَّذِينَ</b> … (3)",
		},
		{
			name:     "other page",
			page:     3,
			statuses: []domain.WordStatus{c, c, c, c, c, c},
			want:     "<b>وَٱلَّذِينَ</b> (4)",
		},
		{
			name:     "short statuses",
			page:     3,
			statuses: nil,
			want:     "… (4)",
		},
		{
			name:     "page outside range",
			page:     9,
			statuses: nil,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatPage(rng, tt.page, tt.statuses))
		})
	}
}

func TestFormatPage_EscapesHTML(t *testing.T) {
	t.Parallel()

	rng := &domain.Range{Words: []domain.ExpectedWord{{Original: "<a&b>", Aya: 1, Page: 1}}}
	assert.Equal(t, "<b>&lt;a&amp;b&gt;</b> (1)", formatPage(rng, 1, []domain.WordStatus{domain.StatusCorrect}))
}

func TestChatRender_Flow(t *testing.T) {
	t.Parallel()

	api := &fakeSender{}
	acked := 0
	rng := renderRange()
	r := newChatRender(api, keyI18n{}, domain.LangEnglish, 42, rng, func() { acked++ }, zap.NewNop())
	ctx := context.Background()

	r.Begin()
	r.RenderChunk(ctx, domain.ChunkUpdate{
		Display:  "ذلك الكتاب",
		Cursor:   2,
		Statuses: []domain.WordStatus{domain.StatusCorrect, domain.StatusCorrect, 0, 0, 0, 0},
	})
	r.FlipPage(ctx, 3)
	r.RecognitionUnavailable(ctx, errors.New("down"))
	r.RenderChunk(ctx, domain.ChunkUpdate{
		Cursor:   6,
		Statuses: []domain.WordStatus{1, 1, 1, 1, 1, 1},
	})

	assert.Equal(t, 1, acked)

	texts := api.texts()
	require.Len(t, texts, 6)
	assert.True(t, strings.HasPrefix(texts[0], "send:<b>recite.page2</b>"), texts[0])
	assert.True(t, strings.HasPrefix(texts[1], "edit1:"), texts[1])
	assert.Contains(t, texts[1], "<b>ٱلْكِتَٰبُ</b>")
	assert.Contains(t, texts[1], "recite.heard:</i> ذلك الكتاب")
	assert.True(t, strings.HasPrefix(texts[2], "send:<b>recite.page3</b>"), texts[2])
	assert.NotContains(t, texts[2], "recite.heard", "heard text is cleared on flip")
	assert.Equal(t, "send:recite.unavailable", texts[3])
	assert.True(t, strings.HasPrefix(texts[4], "edit2:"), "later chunks edit the new page message: %s", texts[4])
	assert.Equal(t, "send:recite.complete", texts[5])
}

func TestChatRender_CompleteOnce(t *testing.T) {
	t.Parallel()

	api := &fakeSender{failOn: func(c tgbotapi.Chattable) bool {
		_, ok := c.(tgbotapi.EditMessageTextConfig)
		return ok
	}}
	rng := renderRange()
	r := newChatRender(api, keyI18n{}, domain.LangEnglish, 1, rng, func() {}, zap.NewNop())

	done := domain.ChunkUpdate{Cursor: rng.Len(), Statuses: make([]domain.WordStatus, rng.Len())}
	r.RenderChunk(context.Background(), done)
	r.RenderChunk(context.Background(), done)

	complete := 0
	for _, text := range api.texts() {
		if text == "send:recite.complete" {
			complete++
		}
	}
	assert.Equal(t, 1, complete)
}
