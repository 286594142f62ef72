// Package filter implements the history entry matching engine used by
// the watcher to decide which posting attempts a chat is notified about.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"autopost_bot/internal/model"
)

// Entry represents a posting attempt to be matched against filters.
type Entry struct {
	RuleName string
	Message  string
}

// Match checks whether an entry passes the given set of filters.
// If no filters are provided, the entry always passes.
// Include filters use OR logic (at least one must match).
// Exclude filters use AND logic (none must match).
func Match(e Entry, filters []model.NotifyFilter) bool {
	if len(filters) == 0 {
		return true
	}

	hasIncludes := false
	anyIncludeMatched := false

	for _, f := range filters {
		switch f.Kind {
		case model.FilterInclude, model.FilterIncludeRe:
			hasIncludes = true
			if matchesFilter(e, f) {
				anyIncludeMatched = true
			}
		case model.FilterExclude, model.FilterExcludeRe:
			if matchesFilter(e, f) {
				return false
			}
		}
	}

	if hasIncludes && !anyIncludeMatched {
		return false
	}
	return true
}

func matchesFilter(e Entry, f model.NotifyFilter) bool {
	text := textForScope(e, f.Scope)
	switch f.Kind {
	case model.FilterInclude, model.FilterExclude:
		return strings.Contains(text, strings.ToLower(f.Value))
	case model.FilterIncludeRe, model.FilterExcludeRe:
		re, err := regexp.Compile("(?i)" + f.Value)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

func textForScope(e Entry, scope model.FilterScope) string {
	switch scope {
	case model.ScopeRule:
		return strings.ToLower(e.RuleName)
	case model.ScopeMessage:
		return strings.ToLower(e.Message)
	default:
		return strings.ToLower(e.RuleName + " " + e.Message)
	}
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
