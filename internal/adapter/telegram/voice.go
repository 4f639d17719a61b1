package telegram

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/recite/pipeline"
)

// enqueueVoice hands msg to the user's voice worker, starting one if needed.
// It never blocks the update loop.
func (b *Bot) enqueueVoice(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)

	b.voiceMu.Lock()
	defer b.voiceMu.Unlock()

	q, ok := b.voiceQueues[userID]
	if !ok {
		q = make(chan *tgbotapi.Message, voiceQueueSize)
		b.voiceQueues[userID] = q
		go b.voiceWorker(ctx, userID, q)
	}

	select {
	case q <- msg:
	default:
		go func() {
			lang := b.service.GetUserLanguage(ctx, userID)
			b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "recite.busy"))
		}()
	}
}

// voiceWorker handles the queued voice messages of one user in order and
// exits once the queue is empty
func (b *Bot) voiceWorker(ctx context.Context, userID string, q chan *tgbotapi.Message) {
	for {
		b.voiceMu.Lock()
		select {
		case msg := <-q:
			b.voiceMu.Unlock()
			b.handleVoice(ctx, msg, b.service.GetUserLanguage(ctx, userID))
		default:
			delete(b.voiceQueues, userID)
			b.voiceMu.Unlock()
			return
		}
	}
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message, lang domain.Language) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	if !b.service.HasSession(userID) {
		b.sendMessage(chatID, b.i18n.Get(lang, "error.unexpected_voice"))
		return
	}

	wav, err := b.processVoiceMessage(ctx, msg.Voice.FileID)
	if err != nil {
		b.logger.Error("process voice message", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.audio_conversion"))
		return
	}

	err = b.service.PushAudio(userID, wav)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrQueueFull):
		b.sendMessage(chatID, b.i18n.Get(lang, "recite.busy"))
	case errors.Is(err, domain.ErrNoSession), errors.Is(err, pipeline.ErrStopped):
		b.sendMessage(chatID, b.i18n.Get(lang, "recite.no_session"))
	default:
		b.logger.Error("push audio", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
	}
}
