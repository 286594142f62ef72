package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"autopost_bot/internal/editor"
	"autopost_bot/internal/model"
)

// editingForm returns the chat's open form, replying with a hint when
// no editor is open.
func (b *Bot) editingForm(chatID int64) *editor.Form {
	sess := b.session(chatID)
	if sess.form == nil {
		b.reply(chatID, "Nothing is being edited. Use /new or /edit <id> first.")
		return nil
	}
	return sess.form
}

func (b *Bot) handleSet(chatID int64, args string) {
	form := b.editingForm(chatID)
	if form == nil {
		return
	}

	field, value, err := ParseSetArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /set <field> <value>. See /help for fields.")
		return
	}

	switch field {
	case "name":
		form.Name = value
	case "topic":
		form.Topic = value
	case "status":
		switch value {
		case "active":
			form.Status = model.StatusActive
		case "inactive":
			form.Status = model.StatusInactive
		default:
			b.notify(chatID, SeverityError, "Status must be active or inactive.")
			return
		}
	case "freq":
		switch value {
		case "daily":
			form.Frequency = model.FrequencyDaily
		case "weekly":
			form.Frequency = model.FrequencyWeekly
		case "custom":
			form.Frequency = model.FrequencyCustom
		default:
			b.notify(chatID, SeverityError, "Frequency must be daily, weekly, or custom.")
			return
		}
	case "time":
		t, err := ParseTimeArg(value)
		if err != nil {
			b.notify(chatID, SeverityError, "Time must look like 09:30 (24-hour HH:MM).")
			return
		}
		form.PreferredTime = t
	case "days":
		days, err := ParseDaysArg(value)
		if err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
		form.PreferredDays = days
	case "every":
		n, unit, err := ParseIntervalArg(value)
		if err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
		form.CustomInterval = n
		form.CustomTimeUnit = unit
	case "channel":
		if value == "" {
			b.reply(chatID, "Usage: /set channel <id>")
			return
		}
		form.ChannelID = value
	case "image":
		on, err := ParseOnOff(value)
		if err != nil {
			b.reply(chatID, "Usage: /set image on|off")
			return
		}
		form.ImageGeneration = on
	case "dedup":
		if value == "off" {
			form.AvoidDuplication = false
			break
		}
		days, err := strconv.Atoi(value)
		if err != nil || days < 1 || days > 30 {
			b.notify(chatID, SeverityError, "Duplicate check window must be off or 1-30 days.")
			return
		}
		form.AvoidDuplication = true
		form.DuplicateCheckDays = days
	default:
		b.reply(chatID, fmt.Sprintf("Unknown field %q. See /help for fields.", field))
		return
	}

	b.reply(chatID, FormatForm(form, b.session(chatID).channels))
}

func (b *Bot) handleKeywords(chatID int64, args string) {
	form := b.editingForm(chatID)
	if form == nil {
		return
	}

	sub, rest := splitSubcommand(args)
	switch sub {
	case "add":
		if err := form.AddKeyword(rest); err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
	case "rm":
		i, err := ParseIndexArg(rest)
		if err != nil {
			b.reply(chatID, "Usage: /kw rm <n>")
			return
		}
		if err := form.RemoveKeyword(i); err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
	default:
		b.reply(chatID, "Usage: /kw add <word> | /kw rm <n>")
		return
	}

	b.reply(chatID, FormatForm(form, b.session(chatID).channels))
}

func (b *Bot) handleSources(ctx context.Context, chatID int64, args string) {
	form := b.editingForm(chatID)
	if form == nil {
		return
	}

	sub, rest := splitSubcommand(args)
	switch sub {
	case "add":
		if err := form.AddSourceURL(rest); err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
	case "rm":
		i, err := ParseIndexArg(rest)
		if err != nil {
			b.reply(chatID, "Usage: /src rm <n>")
			return
		}
		if err := form.RemoveSourceURL(i); err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
	case "check":
		i, err := ParseIndexArg(rest)
		if err != nil || i >= len(form.SourceURLs) {
			b.reply(chatID, "Usage: /src check <n>")
			return
		}
		url := form.SourceURLs[i]
		preview, err := b.fetcher.Check(ctx, url)
		if err != nil {
			b.notify(chatID, SeverityError, fmt.Sprintf("Failed to fetch source: %v.", err))
			return
		}
		b.reply(chatID, FormatPreview(url, preview))
		return
	default:
		b.reply(chatID, "Usage: /src add <url> | /src rm <n> | /src check <n>")
		return
	}

	b.reply(chatID, FormatForm(form, b.session(chatID).channels))
}

func (b *Bot) handleButtons(chatID int64, args string) {
	form := b.editingForm(chatID)
	if form == nil {
		return
	}

	sub, rest := splitSubcommand(args)
	switch sub {
	case "add":
		text, url, err := ParseButtonArgs(rest)
		if err != nil {
			b.reply(chatID, "Usage: /btn add <text> | <url>")
			return
		}
		if err := form.AddButton(text, url); err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
	case "rm":
		i, err := ParseIndexArg(rest)
		if err != nil {
			b.reply(chatID, "Usage: /btn rm <n>")
			return
		}
		if err := form.RemoveButton(i); err != nil {
			b.notify(chatID, SeverityError, capitalize(err.Error())+".")
			return
		}
	default:
		b.reply(chatID, "Usage: /btn add <text> | <url> | /btn rm <n>")
		return
	}

	b.reply(chatID, FormatForm(form, b.session(chatID).channels))
}

func splitSubcommand(args string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	sub := parts[0]
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return sub, rest
}
