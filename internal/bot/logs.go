package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleLogs(ctx context.Context, chatID int64) {
	sess := b.session(chatID)
	sess.mode = modeLogs

	if err := sess.feed.Open(ctx); err != nil {
		b.log.Error("open history", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to load history. Try /logs again.")
		return
	}
	b.renderLogs(chatID)
}

func (b *Bot) handleFind(ctx context.Context, chatID int64, args string) {
	sess := b.session(chatID)
	sess.mode = modeLogs

	if err := sess.feed.SetSearch(ctx, args); err != nil {
		b.log.Error("search history", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Search failed. Try again.")
		return
	}
	b.renderLogs(chatID)
}

func (b *Bot) handleFilter(ctx context.Context, chatID int64, status string) {
	sess := b.session(chatID)
	sess.mode = modeLogs

	if err := sess.feed.SetStatus(ctx, status); err != nil {
		b.log.Error("filter history", "chat_id", chatID, "status", status, "error", err)
		b.notify(chatID, SeverityError, "Failed to apply the filter. Try again.")
		return
	}
	b.renderLogs(chatID)
}

func (b *Bot) handleLoadMore(ctx context.Context, chatID int64) {
	sess := b.session(chatID)
	if sess.mode != modeLogs {
		b.reply(chatID, "Open the history first with /logs.")
		return
	}
	if !sess.feed.HasMore() {
		b.reply(chatID, "No more history entries.")
		return
	}

	if err := sess.feed.LoadMore(ctx); err != nil {
		b.log.Error("load more history", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to load more entries. Try again.")
		return
	}
	b.renderLogs(chatID)
}

func (b *Bot) renderLogs(chatID int64) {
	sess := b.session(chatID)
	text := FormatHistoryPage(sess.feed.Entries(), sess.feed.Status(), sess.feed.Search(), sess.feed.HasMore())
	b.replyWithKeyboard(chatID, text, historyKeyboard(sess.feed.HasMore()))
}

func historyKeyboard(hasMore bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("All", "logfilter:all"),
			tgbotapi.NewInlineKeyboardButtonData("Success", "logfilter:success"),
			tgbotapi.NewInlineKeyboardButtonData("Failed", "logfilter:failed"),
		),
	}
	if hasMore {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Load more", "logmore:-"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
