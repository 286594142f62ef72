package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"autopost_bot/internal/model"
)

// FilterArgs holds the parsed arguments of a notification filter command.
type FilterArgs struct {
	Scope model.FilterScope
	Value string
}

// ParseFilterCommand parses arguments for /winclude, /wexclude, etc.
// Format: [-s rule|message|all] <value...>
func ParseFilterCommand(args string) (FilterArgs, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return FilterArgs{}, fmt.Errorf("usage: [-s rule|message|all] <value>")
	}

	scope := model.ScopeAll
	if len(parts) >= 2 && parts[0] == "-s" {
		switch parts[1] {
		case "rule":
			scope = model.ScopeRule
		case "message":
			scope = model.ScopeMessage
		case "all":
			scope = model.ScopeAll
		default:
			return FilterArgs{}, fmt.Errorf("invalid scope %q, use: rule, message, all", parts[1])
		}
		parts = parts[2:]
	}

	if len(parts) == 0 {
		return FilterArgs{}, fmt.Errorf("filter value is required")
	}

	return FilterArgs{
		Scope: scope,
		Value: strings.Join(parts, " "),
	}, nil
}

// ParseIDArg extracts a rule identifier from a command argument string.
func ParseIDArg(args string) (string, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return "", fmt.Errorf("rule ID is required")
	}
	return strings.Fields(s)[0], nil
}

// ParseIndexArg extracts a 1-based list position and converts it to a
// zero-based index.
func ParseIndexArg(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("position is required")
	}
	n, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return n - 1, nil
}

// ParseSetArgs splits a /set command into field and value.
func ParseSetArgs(args string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("field is required")
	}
	field := strings.ToLower(parts[0])
	value := ""
	if len(parts) == 2 {
		value = strings.TrimSpace(parts[1])
	}
	if value == "" {
		return "", "", fmt.Errorf("value is required")
	}
	return field, value, nil
}

// ParseTimeArg validates a 24-hour HH:MM string and returns it in
// canonical zero-padded form.
func ParseTimeArg(value string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid time %q", value)
	}
	return t.Format("15:04"), nil
}

var dayAliases = map[string]string{
	"mon": "monday", "monday": "monday",
	"tue": "tuesday", "tuesday": "tuesday",
	"wed": "wednesday", "wednesday": "wednesday",
	"thu": "thursday", "thursday": "thursday",
	"fri": "friday", "friday": "friday",
	"sat": "saturday", "saturday": "saturday",
	"sun": "sunday", "sunday": "sunday",
}

// ParseDaysArg parses a comma-separated day list into canonical weekday
// names in week order. Duplicates collapse.
func ParseDaysArg(value string) ([]string, error) {
	selected := map[string]bool{}
	for _, raw := range strings.Split(value, ",") {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		day, ok := dayAliases[raw]
		if !ok {
			return nil, fmt.Errorf("unknown day %q", raw)
		}
		selected[day] = true
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("at least one day is required")
	}

	var days []string
	for _, day := range model.Weekdays {
		if selected[day] {
			days = append(days, day)
		}
	}
	return days, nil
}

// ParseIntervalArg parses "<n> minutes|hours|days" for custom-frequency
// rules.
func ParseIntervalArg(value string) (int, model.TimeUnit, error) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("usage: /set every <n> minutes|hours|days")
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("interval must be a positive number")
	}
	switch strings.ToLower(parts[1]) {
	case "minute", "minutes", "min":
		return n, model.UnitMinutes, nil
	case "hour", "hours", "h":
		return n, model.UnitHours, nil
	case "day", "days", "d":
		return n, model.UnitDays, nil
	}
	return 0, "", fmt.Errorf("unit must be minutes, hours, or days")
}

// ParseButtonArgs splits "<text> | <url>" into its two parts.
func ParseButtonArgs(args string) (string, string, error) {
	parts := strings.SplitN(args, "|", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("usage: <text> | <url>")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// ParseOnOff parses a boolean toggle argument.
func ParseOnOff(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", value)
}
