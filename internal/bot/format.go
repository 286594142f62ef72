package bot

import (
	"fmt"
	"strings"
	"unicode"

	"autopost_bot/internal/editor"
	"autopost_bot/internal/fetcher"
	"autopost_bot/internal/model"
)

// FormatRuleList formats the cached rule set for display.
func FormatRuleList(ruleSet []model.Rule) string {
	if len(ruleSet) == 0 {
		return "You have no posting rules yet. Use /new to create one."
	}
	var b strings.Builder
	b.WriteString("Your posting rules:\n")
	for _, r := range ruleSet {
		fmt.Fprintf(&b, "\n%s — %s [%s]\n", r.ID, r.Name, r.Status)
		fmt.Fprintf(&b, "   topic: %s, %s\n", r.Topic, scheduleSummary(r.Frequency, r.CustomInterval, r.CustomTimeUnit, r.PreferredTime, r.PreferredDays))
		if r.NextScheduled != nil {
			fmt.Fprintf(&b, "   next post: %s\n", r.NextScheduled.Format("2006-01-02 15:04 UTC"))
		}
		if r.LastPublished != nil {
			fmt.Fprintf(&b, "   last post: %s\n", r.LastPublished.Format("2006-01-02 15:04 UTC"))
		}
	}
	b.WriteString("\n/edit <id>, /delete <id>, /new")
	return b.String()
}

// FormatForm formats the editor form with everything the user has
// entered so far.
func FormatForm(f *editor.Form, channels []model.Channel) string {
	var b strings.Builder
	if f.RuleID == "" {
		b.WriteString("New rule (unsaved):\n")
	} else {
		fmt.Fprintf(&b, "Editing rule %s:\n", f.RuleID)
	}

	fmt.Fprintf(&b, "name: %s\n", orPlaceholder(f.Name))
	fmt.Fprintf(&b, "topic: %s\n", orPlaceholder(f.Topic))
	fmt.Fprintf(&b, "status: %s\n", f.Status)
	fmt.Fprintf(&b, "schedule: %s\n", scheduleSummary(f.Frequency, f.CustomInterval, f.CustomTimeUnit, f.PreferredTime, f.PreferredDays))
	fmt.Fprintf(&b, "channel: %s\n", channelSummary(f.ChannelID, channels))
	fmt.Fprintf(&b, "image generation: %s\n", onOff(f.ImageGeneration))
	if f.AvoidDuplication {
		fmt.Fprintf(&b, "duplicate check: last %d days\n", f.DuplicateCheckDays)
	} else {
		b.WriteString("duplicate check: off\n")
	}

	writeIndexed(&b, "keywords", f.Keywords)
	writeIndexed(&b, "sources", f.SourceURLs)
	if len(f.Buttons) == 0 {
		b.WriteString("buttons: none\n")
	} else {
		b.WriteString("buttons:\n")
		for i, btn := range f.Buttons {
			fmt.Fprintf(&b, "  %d. %s -> %s\n", i+1, btn.Text, btn.URL)
		}
	}

	b.WriteString("\n/set, /kw, /src, /btn to change fields. /save when done, /cancel to discard.")
	return b.String()
}

// FormatHistoryPage formats the accumulated history entries.
func FormatHistoryPage(entries []model.HistoryEntry, status, search string, hasMore bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Posting history (%s", status)
	if search != "" {
		fmt.Fprintf(&b, ", search: %q", search)
	}
	b.WriteString("):\n")

	if len(entries) == 0 {
		b.WriteString("\nNo posting attempts found.")
		return b.String()
	}

	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(formatHistoryEntry(e))
	}
	if hasMore {
		b.WriteString("\nMore entries available — use Load more or /more.")
	}
	return b.String()
}

func formatHistoryEntry(e model.HistoryEntry) string {
	var b strings.Builder
	mark := "+"
	if e.Status == model.HistoryFailed {
		mark = "x"
	}
	fmt.Fprintf(&b, "[%s] %s — %s", mark, e.CreatedAt.Format("2006-01-02 15:04"), e.RuleName)
	if e.Channel != "" {
		fmt.Fprintf(&b, " -> %s", e.Channel)
	}
	b.WriteString("\n")
	if e.Message != "" {
		fmt.Fprintf(&b, "    %s\n", e.Message)
	}
	if e.PostURL != "" {
		fmt.Fprintf(&b, "    %s\n", e.PostURL)
	}
	return b.String()
}

// FormatHistoryNotification formats one posting attempt as a standalone
// notification message sent by the watcher.
func FormatHistoryNotification(e model.HistoryEntry) string {
	var b strings.Builder
	if e.Status == model.HistoryFailed {
		fmt.Fprintf(&b, "Posting failed: %s", e.RuleName)
	} else {
		fmt.Fprintf(&b, "Posted: %s", e.RuleName)
	}
	if e.Channel != "" {
		fmt.Fprintf(&b, " -> %s", e.Channel)
	}
	if e.Message != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Message)
	}
	if e.ContentSummary != "" {
		b.WriteString("\n\n")
		b.WriteString(e.ContentSummary)
	}
	if e.PostURL != "" {
		b.WriteString("\n\n")
		b.WriteString(e.PostURL)
	}
	return b.String()
}

// FormatWatch formats the chat's watch settings. A nil watch means
// watching was never configured.
func FormatWatch(w *model.Watch, filters []model.NotifyFilter) string {
	var b strings.Builder
	if w == nil {
		b.WriteString("Watching is not configured. Use /watch on to get notified about new posting attempts.\n")
	} else {
		state := "off"
		if w.Enabled {
			state = "on"
		}
		fmt.Fprintf(&b, "Watching: %s (every %d min)\n", state, w.IntervalMinutes)
		if w.LastCheckAt != nil {
			fmt.Fprintf(&b, "Last check: %s\n", w.LastCheckAt.Format("2006-01-02 15:04 UTC"))
		}
	}
	b.WriteString("\n")
	b.WriteString(FormatNotifyFilterList(filters))
	return b.String()
}

// FormatNotifyFilterList formats the notification filters grouped by kind.
func FormatNotifyFilterList(filters []model.NotifyFilter) string {
	if len(filters) == 0 {
		return "No notification filters.\nUse /winclude, /wexclude, /winclude_re, /wexclude_re to add filters."
	}

	groups := map[string][]model.NotifyFilter{}
	for _, f := range filters {
		var key string
		switch f.Kind {
		case model.FilterInclude:
			key = "Include (word)"
		case model.FilterIncludeRe:
			key = "Include (regex)"
		case model.FilterExclude:
			key = "Exclude (word)"
		case model.FilterExcludeRe:
			key = "Exclude (regex)"
		default:
			continue
		}
		groups[key] = append(groups[key], f)
	}

	var b strings.Builder
	b.WriteString("Notification filters:\n")
	order := []string{"Include (word)", "Include (regex)", "Exclude (word)", "Exclude (regex)"}
	for _, groupName := range order {
		fs := groups[groupName]
		if len(fs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", groupName)
		for _, f := range fs {
			fmt.Fprintf(&b, "  F%d: %s (%s)\n", f.ID, f.Value, scopeLabel(f.Scope))
		}
	}
	return b.String()
}

// FormatChannelList formats the available publishing channels.
func FormatChannelList(channels []model.Channel) string {
	if len(channels) == 0 {
		return "No publishing channels are available. Connect a channel in the dashboard first."
	}
	var b strings.Builder
	b.WriteString("Available channels:\n")
	for _, c := range channels {
		fmt.Fprintf(&b, "\n%s — %s", c.TargetID(), c.Label())
		if c.Username != "" {
			fmt.Fprintf(&b, " (@%s)", c.Username)
		}
	}
	b.WriteString("\n\nUse /set channel <id> in the editor.")
	return b.String()
}

// FormatPreview formats the result of checking a content source.
func FormatPreview(url string, p *fetcher.Preview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source looks good: %s\n", url)
	if p.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", p.Title)
	}
	fmt.Fprintf(&b, "Items: %d\n", p.ItemCount)
	if p.LatestTitle != "" {
		fmt.Fprintf(&b, "Latest: %s\n", p.LatestTitle)
	}
	return b.String()
}

func scheduleSummary(freq model.Frequency, interval int, unit model.TimeUnit, preferredTime string, days []string) string {
	switch freq {
	case model.FrequencyWeekly:
		return fmt.Sprintf("weekly on %s at %s", strings.Join(days, ", "), preferredTime)
	case model.FrequencyCustom:
		return fmt.Sprintf("every %d %s", interval, unit)
	default:
		return fmt.Sprintf("daily at %s", preferredTime)
	}
}

func channelSummary(selected string, channels []model.Channel) string {
	if selected == "" {
		return "(none selected)"
	}
	for _, c := range channels {
		if c.ID == selected || (c.Username != "" && c.Username == selected) {
			return fmt.Sprintf("%s (%s)", c.Label(), selected)
		}
	}
	return fmt.Sprintf("%s (unknown — see /channels)", selected)
}

func writeIndexed(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", label)
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for i, s := range items {
		fmt.Fprintf(b, "  %d. %s\n", i+1, s)
	}
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not set)"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func scopeLabel(s model.FilterScope) string {
	switch s {
	case model.ScopeRule:
		return "rule name only"
	case model.ScopeMessage:
		return "message only"
	default:
		return "rule+message"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
