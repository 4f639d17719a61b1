package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

// sender is the part of *tgbotapi.BotAPI the renderer needs
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const hiddenWords = "…"

var _ domain.RenderPort = (*chatRender)(nil)

// chatRender shows a running session in a chat. One progress message per
// displayed page is edited after every chunk.
type chatRender struct {
	api    sender
	i18n   domain.I18nPort
	lang   domain.Language
	chatID int64
	rng    *domain.Range
	ack    func()
	logger *zap.Logger

	mu         sync.Mutex
	page       int
	progressID int
	statuses   []domain.WordStatus
	cursor     int
	heard      string
	complete   bool
}

func newChatRender(api sender, i18n domain.I18nPort, lang domain.Language, chatID int64, rng *domain.Range, ack func(), logger *zap.Logger) *chatRender {
	return &chatRender{
		api:      api,
		i18n:     i18n,
		lang:     lang,
		chatID:   chatID,
		rng:      rng,
		ack:      ack,
		logger:   logger,
		page:     rng.FirstPage(),
		statuses: make([]domain.WordStatus, rng.Len()),
	}
}

// Begin shows the first page before any audio arrives
func (r *chatRender) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendProgress()
}

func (r *chatRender) RenderChunk(_ context.Context, u domain.ChunkUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses = u.Statuses
	r.cursor = u.Cursor
	r.heard = u.Display

	if r.progressID == 0 {
		r.sendProgress()
	} else {
		edit := tgbotapi.NewEditMessageText(r.chatID, r.progressID, r.progressText())
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := r.api.Send(edit); err != nil {
			// Telegram rejects edits that change nothing
			r.logger.Debug("edit progress message", zap.Error(err))
		}
	}

	if !r.complete && u.Cursor >= r.rng.Len() {
		r.complete = true
		r.send(r.i18n.Get(r.lang, "recite.complete"))
	}
}

func (r *chatRender) FlipPage(_ context.Context, page int) {
	r.mu.Lock()
	r.page = page
	r.heard = ""
	r.sendProgress()
	r.mu.Unlock()

	r.ack()
}

func (r *chatRender) RecognitionUnavailable(_ context.Context, err error) {
	r.logger.Warn("recognition unavailable", zap.Int64("chat_id", r.chatID), zap.Error(err))
	r.send(r.i18n.Get(r.lang, "recite.unavailable"))
}

func (r *chatRender) sendProgress() {
	msg := tgbotapi.NewMessage(r.chatID, r.progressText())
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := r.api.Send(msg)
	if err != nil {
		r.logger.Error("send progress message", zap.Int64("chat_id", r.chatID), zap.Error(err))
		return
	}
	r.progressID = sent.MessageID
}

func (r *chatRender) send(text string) {
	if _, err := r.api.Send(tgbotapi.NewMessage(r.chatID, text)); err != nil {
		r.logger.Error("send message", zap.Int64("chat_id", r.chatID), zap.Error(err))
	}
}

func (r *chatRender) progressText() string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("<b>%s</b>\n\n", r.i18n.Get(r.lang, "recite.page", r.page)))
	text.WriteString(formatPage(r.rng, r.page, r.statuses))
	if r.heard != "" {
		text.WriteString(fmt.Sprintf("\n\n<i>%s:</i> %s", r.i18n.Get(r.lang, "recite.heard"), html.EscapeString(r.heard)))
	}
	return text.String()
}

// formatPage renders the words of page as HTML. Correct words are bold,
// incorrect words struck through and words not reached yet are hidden.
// Each ayah ends with its number.
func formatPage(rng *domain.Range, page int, statuses []domain.WordStatus) string {
	var parts []string
	hidden := false

	for i, w := range rng.Words {
		if w.Page != page {
			continue
		}

		status := domain.StatusUnset
		if i < len(statuses) {
			status = statuses[i]
		}

		switch status {
		case domain.StatusCorrect:
			parts = append(parts, "<b>"+html.EscapeString(w.Original)+"</b>")
			hidden = false
		case domain.StatusIncorrect:
			parts = append(parts, "<s>"+html.EscapeString(w.Original)+"</s>")
			hidden = false
		default:
			if !hidden {
				parts = append(parts, hiddenWords)
				hidden = true
			}
		}

		if i+1 == len(rng.Words) || rng.Words[i+1].Aya != w.Aya || rng.Words[i+1].Sura != w.Sura {
			parts = append(parts, fmt.Sprintf("(%d)", w.Aya))
			hidden = false
		}
	}

	return strings.Join(parts, " ")
}
