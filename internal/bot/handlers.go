package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autopost_bot/internal/editor"
	"autopost_bot/internal/rules"
)

func (b *Bot) notify(chatID int64, sev Severity, text string) {
	b.notifier.Notify(chatID, sev, text)
}

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to AutoPost Bot!

Manage your auto-posting rules and browse publishing history.

Quick start:
1. /rules — show your posting rules
2. /new — create a rule
3. /logs — browse past posting attempts

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Rule management:
/rules — show all rules
/new — create a rule
/edit <id> — edit a rule
/delete <id> — delete a rule (asks for confirmation)
/channels — show available publishing channels

Rule editor (after /new or /edit):
/show — show the current form
/set name <text> | topic <text> | status active|inactive
/set freq daily|weekly|custom
/set time <HH:MM> — preferred posting time
/set days <mon,tue,...> — preferred days (weekly)
/set every <n> minutes|hours|days — custom interval
/set channel <id> — target channel
/set image on|off — image generation
/set dedup off|<1-30> — duplicate check window in days
/kw add <word> | /kw rm <n> — keywords
/src add <url> | /src rm <n> | /src check <n> — content sources
/btn add <text> | <url> — post buttons, /btn rm <n>
/save — validate and save, /cancel — discard

History:
/logs — show recent posting attempts
/find <text> — search history (empty /find clears)
/more — load the next page

Watch (background notifications):
/watch on|off|status — toggle history notifications
/watch every <minutes> — polling interval
/wfilters — show notification filters
/winclude, /wexclude, /winclude_re, /wexclude_re [-s rule|message|all] <value>
/wrmfilter <filter_id> — remove a filter`)
}

func (b *Bot) handleRules(ctx context.Context, chatID int64) {
	sess := b.session(chatID)
	sess.mode = modeRules

	if err := b.store.Refresh(ctx); err != nil {
		b.log.Error("refresh rules", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to load rules. Showing the last known list.")
	}
	b.reply(chatID, FormatRuleList(b.store.Rules()))
}

func (b *Bot) handleNew(ctx context.Context, chatID int64) {
	channels, err := b.backend.ListChannels(ctx)
	if err != nil {
		b.log.Error("list channels", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to load the channel list. Try again.")
		return
	}

	sess := b.session(chatID)
	sess.mode = modeEditor
	sess.form = editor.New(channels)
	sess.channels = channels

	b.reply(chatID, FormatForm(sess.form, sess.channels))
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /edit <id>")
		return
	}

	if len(b.store.Rules()) == 0 {
		if err := b.store.Refresh(ctx); err != nil {
			b.log.Error("refresh rules", "chat_id", chatID, "error", err)
			b.notify(chatID, SeverityError, "Failed to load rules. Try again.")
			return
		}
	}

	rule, ok := b.store.Get(id)
	if !ok {
		b.notify(chatID, SeverityError, fmt.Sprintf("Rule %s not found.", id))
		return
	}

	channels, err := b.backend.ListChannels(ctx)
	if err != nil {
		b.log.Error("list channels", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to load the channel list. Try again.")
		return
	}

	sess := b.session(chatID)
	sess.mode = modeEditor
	sess.form = editor.FromRule(rule)
	sess.channels = channels

	b.reply(chatID, FormatForm(sess.form, sess.channels))
}

func (b *Bot) handleChannels(ctx context.Context, chatID int64) {
	channels, err := b.backend.ListChannels(ctx)
	if err != nil {
		b.log.Error("list channels", "chat_id", chatID, "error", err)
		b.notify(chatID, SeverityError, "Failed to load the channel list. Try again.")
		return
	}
	b.reply(chatID, FormatChannelList(channels))
}

func (b *Bot) handleDeleteConfirm(chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /delete <id>")
		return
	}

	rule, ok := b.store.Get(id)
	if !ok {
		b.notify(chatID, SeverityError, fmt.Sprintf("Rule %s not found.", id))
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete rule \"%s\"? This cannot be undone.", rule.Name))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", "delete:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:-"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send delete confirmation", "error", err)
	}
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, id string) {
	if err := b.store.Delete(ctx, id); err != nil {
		if errors.Is(err, rules.ErrBusy) {
			b.notify(chatID, SeverityError, "Another change is still being saved. Try again in a moment.")
			return
		}
		b.log.Error("delete rule", "chat_id", chatID, "rule_id", id, "error", err)
		b.notify(chatID, SeverityError, "Failed to delete the rule. Nothing was changed.")
		return
	}
	b.notify(chatID, SeveritySuccess, "Rule deleted.")
	b.reply(chatID, FormatRuleList(b.store.Rules()))
}

func (b *Bot) handleShow(chatID int64) {
	sess := b.session(chatID)
	if sess.form == nil {
		b.reply(chatID, "Nothing is being edited. Use /new or /edit <id> first.")
		return
	}
	b.reply(chatID, FormatForm(sess.form, sess.channels))
}

func (b *Bot) handleSave(ctx context.Context, chatID int64) {
	sess := b.session(chatID)
	if sess.form == nil {
		b.reply(chatID, "Nothing is being edited. Use /new or /edit <id> first.")
		return
	}

	// Validation failures abort before any network call; the editor
	// stays open so the user can correct and retry.
	payload, err := sess.form.Payload(sess.channels)
	if err != nil {
		b.notify(chatID, SeverityError, capitalize(err.Error())+".")
		return
	}

	if sess.form.RuleID == "" {
		err = b.store.Create(ctx, payload)
	} else {
		err = b.store.Update(ctx, sess.form.RuleID, payload)
	}
	if err != nil {
		if errors.Is(err, rules.ErrBusy) {
			b.notify(chatID, SeverityError, "The previous save is still in progress.")
			return
		}
		b.log.Error("save rule", "chat_id", chatID, "rule_id", sess.form.RuleID, "error", err)
		b.notify(chatID, SeverityError, "Failed to save the rule. Your changes are kept — try /save again.")
		return
	}

	sess.mode = modeRules
	sess.form = nil
	sess.channels = nil

	b.notify(chatID, SeveritySuccess, "Rule saved.")
	b.reply(chatID, FormatRuleList(b.store.Rules()))
}

func (b *Bot) handleCancel(chatID int64) {
	sess := b.session(chatID)
	if sess.form == nil {
		b.reply(chatID, "Nothing is being edited.")
		return
	}
	sess.mode = modeRules
	sess.form = nil
	sess.channels = nil
	b.reply(chatID, "Editing cancelled. Nothing was saved.")
}
