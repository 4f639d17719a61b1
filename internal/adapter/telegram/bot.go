package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/adapter/i18n"
	"github.com/escalopa/quran-recite-checker/internal/application"
	"github.com/escalopa/quran-recite-checker/internal/domain"
)

const (
	surahsPerPage  = 10
	maxAyahDigits  = 3
	voiceQueueSize = 4
)

var _ domain.BotPort = (*Bot)(nil)

type Bot struct {
	api        *tgbotapi.BotAPI
	service    *application.RecitationService
	i18n       domain.I18nPort
	commands   map[string]CommandHandler
	httpClient *http.Client
	logger     *zap.Logger
	cancel     context.CancelFunc

	voiceMu     sync.Mutex
	voiceQueues map[string]chan *tgbotapi.Message
}

type Option func(*Bot)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

// WithHTTPClient sets the client used to download voice messages
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) {
		b.httpClient = c
	}
}

func NewBot(token string, service *application.RecitationService, i18n domain.I18nPort, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		api:         api,
		service:     service,
		i18n:        i18n,
		commands:    make(map[string]CommandHandler),
		httpClient:  &http.Client{Timeout: time.Minute},
		logger:      zap.NewNop(),
		voiceQueues: make(map[string]chan *tgbotapi.Message),
	}
	for _, o := range opts {
		o(bot)
	}

	bot.registerCommands()

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.logger.Info("authorized", zap.String("account", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// Voice messages of a user are queued in arrival order
			if update.Message != nil && update.Message.Voice != nil {
				b.enqueueVoice(ctx, update.Message)
				continue
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	userID := b.getUserID(update)
	if userID == "" {
		return
	}

	lang := b.service.GetUserLanguage(ctx, userID)

	if update.Message != nil && update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message, lang)
		return
	}

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery, lang)
		return
	}

	// Typed ayah numbers
	if update.Message != nil && update.Message.Text != "" {
		b.handleText(ctx, update.Message, lang)
		return
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, lang domain.Language) {
	handler, exists := b.commands[msg.Command()]
	if !exists {
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.unknown_command"))
		return
	}

	handler(ctx, msg)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, lang domain.Language) {
	if callback.Message == nil {
		return
	}

	userID := strconv.FormatInt(callback.From.ID, 10)
	chatID := callback.Message.Chat.ID

	// Remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug("answer callback", zap.Error(err))
	}

	prefix, arg, _ := strings.Cut(callback.Data, ":")

	switch prefix {
	case "lang":
		newLang := domain.Language(arg)
		if err := b.service.SetLanguage(ctx, userID, newLang); err != nil {
			b.logger.Error("set language", zap.String("user_id", userID), zap.Error(err))
			return
		}
		b.deleteMessage(callback.Message)
		b.sendMessage(chatID, b.i18n.Get(newLang, "language.changed"))

	case "spage":
		page, _ := strconv.Atoi(arg)
		b.editSurahSelection(ctx, callback.Message, userID, lang, page)

	case "surah":
		surahNum, err := strconv.Atoi(arg)
		if err != nil {
			b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, "error.invalid_input"))
			return
		}

		surah, err := b.service.HandleSurahSelection(ctx, userID, surahNum)
		if errors.Is(err, domain.ErrInvalidRange) {
			b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, "error.invalid_range"))
			return
		}
		if err != nil {
			b.logger.Warn("select surah", zap.String("user_id", userID), zap.Error(err))
			b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, "error.generic"))
			return
		}

		text := b.i18n.Get(lang, "ayah.select", b.i18n.GetSurahName(lang, surah.Number), surah.Ayahs)
		b.editMessageWithKeyboard(callback.Message, text, b.getAyahKeyboard(lang))

	case "digit":
		b.handleDigitInput(ctx, callback.Message, userID, lang, arg)

	case "clear":
		b.handleClearDigit(ctx, callback.Message, userID, lang)

	case "done":
		b.handleAyahDone(ctx, callback.Message, userID, lang)

	case "stop":
		b.stopRecitation(ctx, chatID, userID, lang)

	case "newrecite":
		b.deleteMessage(callback.Message)
		b.beginSelection(ctx, chatID, userID, lang)

	case "history":
		b.editHistory(ctx, callback.Message, userID, lang, 0)

	case "hpage":
		page, _ := strconv.Atoi(arg)
		b.editHistory(ctx, callback.Message, userID, lang, page)

	case "report":
		b.handleViewReport(ctx, callback.Message, userID, lang, arg)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message, lang domain.Language) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	state, err := b.service.GetCurrentState(ctx, userID)
	if err != nil {
		b.logger.Error("get state", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	if state != domain.StateEnterFromAya && state != domain.StateEnterToAya {
		b.sendMessage(chatID, b.i18n.Get(lang, "help.message"))
		return
	}

	complete, err := b.service.HandleAyahInput(ctx, userID, strings.TrimSpace(msg.Text))
	if err != nil {
		b.sendMessage(chatID, b.ayahErrorText(lang, err))
		return
	}

	b.afterAyahInput(ctx, chatID, userID, lang, complete)
}

func (b *Bot) handleDigitInput(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, digit string) {
	currentInput := b.service.GetAyahInput(ctx, userID)

	if len(currentInput) < maxAyahDigits {
		currentInput += digit
		if err := b.service.SetAyahInput(ctx, userID, currentInput); err != nil {
			b.logger.Error("set ayah input", zap.String("user_id", userID), zap.Error(err))
			return
		}
	}

	b.editAyahPrompt(ctx, msg, userID, lang, currentInput, "")
}

func (b *Bot) handleClearDigit(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	currentInput := b.service.GetAyahInput(ctx, userID)

	if len(currentInput) > 0 {
		currentInput = currentInput[:len(currentInput)-1]
		if err := b.service.SetAyahInput(ctx, userID, currentInput); err != nil {
			b.logger.Error("set ayah input", zap.String("user_id", userID), zap.Error(err))
			return
		}
	}

	b.editAyahPrompt(ctx, msg, userID, lang, currentInput, "")
}

func (b *Bot) handleAyahDone(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	ayahInput := b.service.GetAyahInput(ctx, userID)
	if ayahInput == "" {
		b.editAyahPrompt(ctx, msg, userID, lang, "", b.i18n.Get(lang, "error.invalid_ayah"))
		return
	}

	complete, err := b.service.HandleAyahInput(ctx, userID, ayahInput)
	if err != nil {
		b.logger.Debug("ayah input rejected", zap.String("user_id", userID), zap.Error(err))
		b.editAyahPrompt(ctx, msg, userID, lang, ayahInput, b.ayahErrorText(lang, err))
		return
	}

	b.deleteMessage(msg)
	b.afterAyahInput(ctx, msg.Chat.ID, userID, lang, complete)
}

// afterAyahInput moves on to the end of the range, or starts reciting once
// both ends are known
func (b *Bot) afterAyahInput(ctx context.Context, chatID int64, userID string, lang domain.Language, complete bool) {
	if !complete {
		from, err := b.service.SelectedRange(ctx, userID)
		if err != nil {
			b.logger.Error("get selected range", zap.String("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
			return
		}
		b.sendSurahSelection(chatID, lang, "surah.select_to", (from.From.Sura-1)/surahsPerPage)
		return
	}

	b.startRecitation(ctx, chatID, userID, lang)
}

func (b *Bot) ayahErrorText(lang domain.Language, err error) string {
	if errors.Is(err, domain.ErrInvalidRange) {
		return b.i18n.Get(lang, "error.invalid_range")
	}
	return b.i18n.Get(lang, "error.invalid_ayah")
}

func (b *Bot) editAyahPrompt(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, input, warning string) {
	surahNum, err := b.service.GetSelectedSurah(ctx, userID)
	if err != nil {
		b.logger.Error("get selected surah", zap.String("user_id", userID), zap.Error(err))
		return
	}

	surah, ok := domain.SurahByNumber(surahNum)
	if !ok {
		return
	}

	text := b.i18n.Get(lang, "ayah.select", b.i18n.GetSurahName(lang, surahNum), surah.Ayahs)
	if input != "" {
		text += fmt.Sprintf("\n\n📝 %s", input)
	}
	if warning != "" {
		text += "\n\n⚠️ " + warning
	}

	b.editMessageWithKeyboard(msg, text, b.getAyahKeyboard(lang))
}

func (b *Bot) beginSelection(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	if b.service.HasSession(userID) {
		b.sendMessage(chatID, b.i18n.Get(lang, "error.session_active"))
		return
	}

	if err := b.service.HandleStart(ctx, userID, lang); err != nil {
		b.logger.Error("handle start", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	b.sendSurahSelection(chatID, lang, "surah.select_from", 0)
}

func (b *Bot) startRecitation(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	var render *chatRender
	rng, err := b.service.StartRecitation(ctx, userID, func(rng *domain.Range, ack func()) domain.RenderPort {
		render = newChatRender(b.api, b.i18n, lang, chatID, rng, ack, b.logger.With(zap.String("user_id", userID)))
		return render
	})
	switch {
	case errors.Is(err, domain.ErrEmptyRange):
		b.sendMessage(chatID, b.i18n.Get(lang, "error.empty_range"))
		b.beginSelection(ctx, chatID, userID, lang)
		return
	case errors.Is(err, domain.ErrSessionActive):
		b.sendMessage(chatID, b.i18n.Get(lang, "error.session_active"))
		return
	case errors.Is(err, domain.ErrInvalidRange):
		b.sendMessage(chatID, b.i18n.Get(lang, "error.invalid_range"))
		b.beginSelection(ctx, chatID, userID, lang)
		return
	case err != nil:
		b.logger.Error("start recitation", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	selected := b.i18n.Get(lang, "range.selected",
		b.i18n.GetSurahName(lang, rng.From.Sura), rng.From.Aya,
		b.i18n.GetSurahName(lang, rng.To.Sura), rng.To.Aya,
		rng.Len(),
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏹ "+b.i18n.Get(lang, "recite.stop"), "stop"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, selected+"\n\n"+b.i18n.Get(lang, "recite.prompt"))
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send prompt", zap.Error(err))
	}

	render.Begin()
}

func (b *Bot) stopRecitation(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	report, err := b.service.StopRecitation(ctx, userID)
	if errors.Is(err, domain.ErrNoSession) {
		b.sendMessage(chatID, b.i18n.Get(lang, "recite.no_session"))
		return
	}
	if err != nil {
		b.logger.Error("stop recitation", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	b.sendReport(chatID, lang, report)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) deleteMessage(msg *tgbotapi.Message) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.logger.Debug("delete message", zap.Error(err))
	}
}

func (b *Bot) sendLanguageSelection(chatID int64, currentLang domain.Language) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", "lang:en"),
			tgbotapi.NewInlineKeyboardButtonData("🇸🇦 العربية", "lang:ar"),
			tgbotapi.NewInlineKeyboardButtonData("🇷🇺 Русский", "lang:ru"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, b.i18n.Get(currentLang, "language.select"))
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send language selection", zap.Error(err))
	}
}

func (b *Bot) sendSurahSelection(chatID int64, lang domain.Language, promptKey string, page int) {
	msg := tgbotapi.NewMessage(chatID, b.i18n.Get(lang, promptKey))
	msg.ReplyMarkup = b.getSurahKeyboard(lang, page)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send surah selection", zap.Error(err))
	}
}

func (b *Bot) editSurahSelection(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, page int) {
	promptKey := "surah.select_from"
	if state, err := b.service.GetCurrentState(ctx, userID); err == nil && state == domain.StateSelectToSura {
		promptKey = "surah.select_to"
	}
	b.editMessageWithKeyboard(msg, b.i18n.Get(lang, promptKey), b.getSurahKeyboard(lang, page))
}

func (b *Bot) getSurahKeyboard(lang domain.Language, page int) tgbotapi.InlineKeyboardMarkup {
	surahs := b.service.GetAllSurahs()

	totalPages := (len(surahs) + surahsPerPage - 1) / surahsPerPage
	page = min(max(page, 0), totalPages-1)

	start := page * surahsPerPage
	end := min(start+surahsPerPage, len(surahs))

	var rows [][]tgbotapi.InlineKeyboardButton

	// Two surahs per row
	for i := start; i < end; i += 2 {
		row := []tgbotapi.InlineKeyboardButton{b.surahButton(lang, surahs[i].Number)}
		if i+1 < end {
			row = append(row, b.surahButton(lang, surahs[i+1].Number))
		}
		rows = append(rows, row)
	}

	if totalPages > 1 {
		var navRow []tgbotapi.InlineKeyboardButton
		if page > 0 {
			navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData("⬅️ "+b.i18n.Get(lang, "nav.prev"), fmt.Sprintf("spage:%d", page-1)))
		}
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d", page+1, totalPages),
			"noop",
		))
		if page < totalPages-1 {
			navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(b.i18n.Get(lang, "nav.next")+" ➡️", fmt.Sprintf("spage:%d", page+1)))
		}
		rows = append(rows, navRow)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) surahButton(lang domain.Language, number int) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(
		i18n.FormatSurahButton(lang, b.i18n, number),
		fmt.Sprintf("surah:%d", number),
	)
}

func (b *Bot) getAyahKeyboard(lang domain.Language) tgbotapi.InlineKeyboardMarkup {
	// Telephone-style number keyboard (3x3 + bottom row)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1", "digit:1"),
			tgbotapi.NewInlineKeyboardButtonData("2", "digit:2"),
			tgbotapi.NewInlineKeyboardButtonData("3", "digit:3"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("4", "digit:4"),
			tgbotapi.NewInlineKeyboardButtonData("5", "digit:5"),
			tgbotapi.NewInlineKeyboardButtonData("6", "digit:6"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("7", "digit:7"),
			tgbotapi.NewInlineKeyboardButtonData("8", "digit:8"),
			tgbotapi.NewInlineKeyboardButtonData("9", "digit:9"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ "+b.i18n.Get(lang, "nav.back"), "clear"),
			tgbotapi.NewInlineKeyboardButtonData("0", "digit:0"),
			tgbotapi.NewInlineKeyboardButtonData("✅ "+b.i18n.Get(lang, "nav.done"), "done"),
		),
	)
}

func (b *Bot) editMessageWithKeyboard(msg *tgbotapi.Message, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	edit.ReplyMarkup = &keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("edit message", zap.Error(err))
	}
}

func (b *Bot) answerCallbackAlert(callbackID, text string) {
	callback := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Debug("answer callback", zap.Error(err))
	}
}

func (b *Bot) getUserID(update tgbotapi.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return strconv.FormatInt(update.Message.From.ID, 10)
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return strconv.FormatInt(update.CallbackQuery.From.ID, 10)
	}
	return ""
}
