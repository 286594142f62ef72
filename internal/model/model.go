// Package model defines the domain types used across the application.
package model

import "time"

// RuleStatus indicates whether a rule is currently being scheduled.
type RuleStatus string

// Supported rule statuses.
const (
	StatusActive   RuleStatus = "active"
	StatusInactive RuleStatus = "inactive"
)

// Frequency is the cadence category of a rule.
type Frequency string

// Supported frequencies.
const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// TimeUnit is the unit of a custom posting interval.
type TimeUnit string

// Supported custom interval units.
const (
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
)

// Weekdays is the canonical seven-day week in posting order.
var Weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday",
	"friday", "saturday", "sunday",
}

// Button is an inline link attached to generated posts.
type Button struct {
	Text string
	URL  string
}

// Rule is a persisted directive describing what, where, and how often
// to auto-publish content. NextScheduled and LastPublished are computed
// by the backend and never set client-side.
type Rule struct {
	ID                 string
	Name               string
	Topic              string
	Status             RuleStatus
	Frequency          Frequency
	CustomInterval     int
	CustomTimeUnit     TimeUnit
	PreferredTime      string
	PreferredDays      []string
	ChannelID          string
	ImageGeneration    bool
	Keywords           []string
	SourceURLs         []string
	Buttons            []Button
	AvoidDuplication   bool
	DuplicateCheckDays int
	NextScheduled      *time.Time
	LastPublished      *time.Time
}

// Channel is an external publishing destination a rule targets.
// ID is the backend storage identifier; Username is the platform handle,
// used as a fallback identifier for channels not yet stored backend-side.
type Channel struct {
	ID       string
	Username string
	Title    string
}

// TargetID returns the identifier a rule payload should reference:
// the storage identifier when present, the platform handle otherwise.
func (c Channel) TargetID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Username
}

// Label returns a human-readable name for the channel.
func (c Channel) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Username
}

// HistoryStatus is the outcome of a posting attempt.
type HistoryStatus string

// Supported history statuses.
const (
	HistorySuccess HistoryStatus = "success"
	HistoryFailed  HistoryStatus = "failed"
)

// HistoryEntry is an immutable record of one past auto-posting attempt.
// Entries are created backend-side only.
type HistoryEntry struct {
	ID             string
	RuleID         string
	RuleName       string
	Channel        string
	Status         HistoryStatus
	Message        string
	ContentSummary string
	ImageURL       string
	PostURL        string
	PostID         string
	CreatedAt      time.Time
}

// FilterKind defines the type of notification filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// FilterScope defines which part of a history entry a filter matches against.
type FilterScope string

// Supported filter scopes.
const (
	ScopeRule    FilterScope = "rule"
	ScopeMessage FilterScope = "message"
	ScopeAll     FilterScope = "all"
)

// NotifyFilter is a single filtering rule applied to history entries
// before the watcher forwards them to a chat.
type NotifyFilter struct {
	ID        int64
	ChatID    int64
	Kind      FilterKind
	Scope     FilterScope
	Value     string
	CreatedAt time.Time
}

// Watch holds per-chat settings for background history polling.
type Watch struct {
	ChatID          int64
	Enabled         bool
	IntervalMinutes int
	LastCheckAt     *time.Time
	CreatedAt       time.Time
}
