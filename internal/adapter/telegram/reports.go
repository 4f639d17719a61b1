package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

const (
	historyPerPage = 5
	historyLimit   = 50
)

// handleViewReport shows a stored report
func (b *Bot) handleViewReport(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, reportID string) {
	report, err := b.service.GetReport(ctx, userID, reportID)
	if err != nil {
		b.logger.Warn("get report", zap.String("user_id", userID), zap.String("report_id", reportID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.report_not_found"))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ "+b.i18n.Get(lang, "nav.back"), "history"),
		),
	)

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, formatReport(b.i18n, lang, report))
	edit.ReplyMarkup = &keyboard
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("edit message", zap.Error(err))
	}
}

// sendReport sends the report of a session that just stopped
func (b *Bot) sendReport(chatID int64, lang domain.Language, report *domain.FinalReport) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ "+b.i18n.Get(lang, "recite.new"), "newrecite"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, formatReport(b.i18n, lang, report))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send report", zap.Error(err))
	}
}

func (b *Bot) sendHistory(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	reports, err := b.service.ListReports(ctx, userID, historyLimit)
	if err != nil {
		b.logger.Error("list reports", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	if len(reports) == 0 {
		b.sendMessage(chatID, b.i18n.Get(lang, "history.empty"))
		return
	}

	text, keyboard := formatHistory(b.i18n, lang, reports, 0)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send history", zap.Error(err))
	}
}

func (b *Bot) editHistory(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, page int) {
	reports, err := b.service.ListReports(ctx, userID, historyLimit)
	if err != nil {
		b.logger.Error("list reports", zap.String("user_id", userID), zap.Error(err))
		return
	}

	text, keyboard := formatHistory(b.i18n, lang, reports, page)
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	edit.ReplyMarkup = &keyboard
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("edit history", zap.Error(err))
	}
}

// formatHistory formats reports into a paginated list with keyboard
func formatHistory(i18n domain.I18nPort, lang domain.Language, reports []*domain.FinalReport, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	totalPages := max((len(reports)+historyPerPage-1)/historyPerPage, 1)
	page = min(max(page, 0), totalPages-1)

	start := page * historyPerPage
	end := min(start+historyPerPage, len(reports))

	var text strings.Builder
	text.WriteString(fmt.Sprintf("<b>%s</b>\n\n", i18n.Get(lang, "history.title")))
	text.WriteString(fmt.Sprintf("%s: %d\n", i18n.Get(lang, "history.total"), len(reports)))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range reports[start:end] {
		btnText := fmt.Sprintf("%s %s - %s",
			ratioEmoji(r), formatRange(i18n, lang, r.From, r.To), r.StartedAt.Format("2006-01-02 15:04"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnText, "report:"+r.ID),
		))
	}

	if totalPages > 1 {
		var navRow []tgbotapi.InlineKeyboardButton
		if page > 0 {
			navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
				"⬅️ "+i18n.Get(lang, "nav.prev"),
				fmt.Sprintf("hpage:%d", page-1),
			))
		}
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d", page+1, totalPages),
			"noop",
		))
		if page < totalPages-1 {
			navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
				i18n.Get(lang, "nav.next")+" ➡️",
				fmt.Sprintf("hpage:%d", page+1),
			))
		}
		rows = append(rows, navRow)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ "+i18n.Get(lang, "recite.new"), "newrecite"),
	))

	return text.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// formatReport formats a final report as HTML
func formatReport(i18n domain.I18nPort, lang domain.Language, r *domain.FinalReport) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("<b>%s</b>\n\n", i18n.Get(lang, "report.title")))
	text.WriteString(fmt.Sprintf("📖 %s: <b>%s</b>\n", i18n.Get(lang, "report.range"), formatRange(i18n, lang, r.From, r.To)))
	text.WriteString(fmt.Sprintf("📍 %s: %d/%d\n", i18n.Get(lang, "report.reached"), r.Reached, r.Total))
	text.WriteString(fmt.Sprintf("✅ %s: %d\n", i18n.Get(lang, "report.correct"), r.Correct))
	text.WriteString(fmt.Sprintf("❌ %s: %d\n", i18n.Get(lang, "report.incorrect"), r.Incorrect))
	text.WriteString(fmt.Sprintf("📊 %s: <b>%.1f%%</b>\n", i18n.Get(lang, "report.ratio"), r.Ratio*100))

	if !r.StartedAt.IsZero() && r.StoppedAt.After(r.StartedAt) {
		d := r.StoppedAt.Sub(r.StartedAt).Round(time.Second)
		text.WriteString(fmt.Sprintf("⏱ %s: %s\n", i18n.Get(lang, "report.duration"), d))
	}

	return text.String()
}

func formatRange(i18n domain.I18nPort, lang domain.Language, from, to domain.Position) string {
	fromName := i18n.GetSurahName(lang, from.Sura)
	if from.Sura == to.Sura {
		return fmt.Sprintf("%s %d-%d", fromName, from.Aya, to.Aya)
	}
	return fmt.Sprintf("%s %d - %s %d", fromName, from.Aya, i18n.GetSurahName(lang, to.Sura), to.Aya)
}

func ratioEmoji(r *domain.FinalReport) string {
	switch {
	case r.Reached == 0:
		return "⚪"
	case r.Ratio >= 0.9:
		return "🟢"
	case r.Ratio >= 0.6:
		return "🟡"
	default:
		return "🔴"
	}
}
