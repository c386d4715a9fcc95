// Package telegram adapts the Telegram Bot API to the sender and listener
// shapes used by the notifier and the status query handler.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/retry"
)

// PollTimeout is the long-poll timeout in seconds.
const PollTimeout = 60

// MaxMessageLength is the longest text one sendMessage call accepts.
const MaxMessageLength = 4096

// Chat types as reported by the API.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// Message is an inbound text message.
type Message struct {
	ChatID   int64
	ChatType string
	Text     string
}

// HandlerFunc is called for every inbound text message.
type HandlerFunc func(ctx context.Context, m Message)

type Bot struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// New authenticates with token. endpoint defaults to the public API.
func New(token, endpoint string, client *http.Client, logger *zap.Logger) (*Bot, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, serrors.WrapWithCode(err, serrors.ErrTransport,
			"Telegram authentication failed", "Check --token / TELEGRAM_TOKEN and network access")
	}
	return &Bot{api: api, logger: logger}, nil
}

// Username is the bot's own @name without the leading @.
func (b *Bot) Username() string { return b.api.Self.UserName }

// Send posts text to chatID in Markdown mode. Client-side API errors
// other than rate limiting are returned as permanent.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		wrapped := serrors.WrapWithCode(err, serrors.ErrTransport, "sendMessage failed", "")
		if isPermanent(err) {
			return retry.Permanent(wrapped)
		}
		return wrapped
	}
	return nil
}

func isPermanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
}

// Listen long-polls for updates and calls handle for each text message
// until ctx is done. Messages are handled one at a time.
func (b *Bot) Listen(ctx context.Context, handle HandlerFunc) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = PollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("telegram_listening", zap.String("bot", b.Username()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if m, ok := messageOf(upd); ok {
				handle(ctx, m)
			}
		}
	}
}

func messageOf(upd tgbotapi.Update) (Message, bool) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return Message{}, false
	}
	return Message{ChatID: msg.Chat.ID, ChatType: msg.Chat.Type, Text: msg.Text}, true
}

// EscapeMarkdown escapes text for the legacy Markdown parse mode.
func EscapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// IsGroup reports whether chatType addresses more than one person.
func IsGroup(chatType string) bool {
	switch strings.ToLower(chatType) {
	case ChatGroup, ChatSupergroup:
		return true
	}
	return false
}
