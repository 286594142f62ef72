package bot

import (
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Severity classifies a transient notification and determines how long
// it stays on screen before the bot deletes it.
type Severity string

// Supported severities.
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

func displayDuration(sev Severity) time.Duration {
	if sev == SeverityError {
		return 8 * time.Second
	}
	return 5 * time.Second
}

type pendingNotice struct {
	messageID int
	timer     *time.Timer
}

// Notifier delivers transient status messages. Each chat has at most one
// pending notice: raising a new one stops the previous dismissal timer
// and deletes the superseded message, so a stale timer can never clear
// a newer message early.
type Notifier struct {
	api telegramAPI
	log *slog.Logger

	mu      sync.Mutex
	pending map[int64]*pendingNotice
}

// NewNotifier creates a Notifier sending through the given API.
func NewNotifier(api telegramAPI, log *slog.Logger) *Notifier {
	return &Notifier{
		api:     api,
		log:     log,
		pending: make(map[int64]*pendingNotice),
	}
}

// Notify sends a transient status message to the chat and schedules its
// dismissal based on severity.
func (n *Notifier) Notify(chatID int64, sev Severity, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	sent, err := n.api.Send(msg)
	if err != nil {
		n.log.Error("send notification", "chat_id", chatID, "error", err)
		return
	}

	n.mu.Lock()
	if prev, ok := n.pending[chatID]; ok {
		prev.timer.Stop()
		n.deleteMessage(chatID, prev.messageID)
	}
	p := &pendingNotice{messageID: sent.MessageID}
	p.timer = time.AfterFunc(displayDuration(sev), func() {
		n.dismiss(chatID, p)
	})
	n.pending[chatID] = p
	n.mu.Unlock()
}

func (n *Notifier) dismiss(chatID int64, p *pendingNotice) {
	n.mu.Lock()
	if cur, ok := n.pending[chatID]; ok && cur == p {
		delete(n.pending, chatID)
		n.deleteMessage(chatID, p.messageID)
	}
	n.mu.Unlock()
}

// deleteMessage must be called with n.mu held.
func (n *Notifier) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := n.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		n.log.Error("delete notification", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}
