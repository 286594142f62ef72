package api

import (
	"time"

	"autopost_bot/internal/model"
)

// RulePayload is the flat wire shape the backend expects for rule
// create/update calls. PreferredTime and PreferredDays are always
// populated; the custom interval fields are only present for
// custom-frequency rules.
type RulePayload struct {
	Name               string          `json:"name"`
	Topic              string          `json:"topic"`
	Status             string          `json:"status"`
	Frequency          string          `json:"frequency"`
	CustomInterval     int             `json:"customInterval,omitempty"`
	CustomTimeUnit     string          `json:"customTimeUnit,omitempty"`
	PreferredTime      string          `json:"preferredTime"`
	PreferredDays      []string        `json:"preferredDays"`
	ChannelID          string          `json:"channelId"`
	ImageGeneration    bool            `json:"imageGeneration"`
	Keywords           []string        `json:"keywords"`
	SourceURLs         []string        `json:"sourceUrls"`
	Buttons            []ButtonPayload `json:"buttons"`
	AvoidDuplication   bool            `json:"avoidDuplication"`
	DuplicateCheckDays int             `json:"duplicateCheckDays"`
}

// ButtonPayload is the wire shape of an inline post button.
type ButtonPayload struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type result interface {
	ok() bool
	errorMessage() string
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e envelope) ok() bool             { return e.Success }
func (e envelope) errorMessage() string { return e.Message }

type statusEnvelope struct {
	envelope
}

type rulesEnvelope struct {
	envelope
	Data struct {
		Rules []wireRule `json:"rules"`
	} `json:"data"`
}

type channelsEnvelope struct {
	envelope
	Data struct {
		Channels []wireChannel `json:"channels"`
	} `json:"data"`
}

type historyEnvelope struct {
	envelope
	Data struct {
		History    []wireHistoryEntry `json:"history"`
		Pagination struct {
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	} `json:"data"`
}

type wireRule struct {
	ID                 string          `json:"_id"`
	Name               string          `json:"name"`
	Topic              string          `json:"topic"`
	Status             string          `json:"status"`
	Frequency          string          `json:"frequency"`
	CustomInterval     int             `json:"customInterval"`
	CustomTimeUnit     string          `json:"customTimeUnit"`
	PreferredTime      string          `json:"preferredTime"`
	PreferredDays      []string        `json:"preferredDays"`
	ChannelID          string          `json:"channelId"`
	ImageGeneration    bool            `json:"imageGeneration"`
	Keywords           []string        `json:"keywords"`
	SourceURLs         []string        `json:"sourceUrls"`
	Buttons            []ButtonPayload `json:"buttons"`
	AvoidDuplication   bool            `json:"avoidDuplication"`
	DuplicateCheckDays int             `json:"duplicateCheckDays"`
	NextScheduled      string          `json:"nextScheduled"`
	LastPublished      string          `json:"lastPublished"`
}

func (w wireRule) toRule() model.Rule {
	buttons := make([]model.Button, 0, len(w.Buttons))
	for _, b := range w.Buttons {
		buttons = append(buttons, model.Button{Text: b.Text, URL: b.URL})
	}
	return model.Rule{
		ID:                 w.ID,
		Name:               w.Name,
		Topic:              w.Topic,
		Status:             model.RuleStatus(w.Status),
		Frequency:          model.Frequency(w.Frequency),
		CustomInterval:     w.CustomInterval,
		CustomTimeUnit:     model.TimeUnit(w.CustomTimeUnit),
		PreferredTime:      w.PreferredTime,
		PreferredDays:      w.PreferredDays,
		ChannelID:          w.ChannelID,
		ImageGeneration:    w.ImageGeneration,
		Keywords:           w.Keywords,
		SourceURLs:         w.SourceURLs,
		Buttons:            buttons,
		AvoidDuplication:   w.AvoidDuplication,
		DuplicateCheckDays: w.DuplicateCheckDays,
		NextScheduled:      parseTimestamp(w.NextScheduled),
		LastPublished:      parseTimestamp(w.LastPublished),
	}
}

type wireChannel struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Title    string `json:"title"`
}

type wireHistoryEntry struct {
	ID             string `json:"_id"`
	RuleID         string `json:"ruleId"`
	RuleName       string `json:"ruleName"`
	Channel        string `json:"channel"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	ContentSummary string `json:"contentSummary"`
	ImageURL       string `json:"imageUrl"`
	PostURL        string `json:"postUrl"`
	PostID         string `json:"postId"`
	CreatedAt      string `json:"createdAt"`
}

// toEntry converts a wire entry to the domain model, normalizing the
// backend-serialized timestamp so the in-memory model never holds a
// mixture of string and structured times.
func (w wireHistoryEntry) toEntry() model.HistoryEntry {
	var created time.Time
	if t := parseTimestamp(w.CreatedAt); t != nil {
		created = *t
	}
	return model.HistoryEntry{
		ID:             w.ID,
		RuleID:         w.RuleID,
		RuleName:       w.RuleName,
		Channel:        w.Channel,
		Status:         model.HistoryStatus(w.Status),
		Message:        w.Message,
		ContentSummary: w.ContentSummary,
		ImageURL:       w.ImageURL,
		PostURL:        w.PostURL,
		PostID:         w.PostID,
		CreatedAt:      created,
	}
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
