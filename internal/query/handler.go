// Package query answers /status requests from chat.
package query

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/report"
	"github.com/hamed0406/sshwatch/internal/repo"
	"github.com/hamed0406/sshwatch/internal/telegram"
)

const Command = "/status"

// Replier delivers the rendered reply to the requesting chat.
type Replier interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

type Handler struct {
	store   repo.StatusReader
	reply   Replier
	format  report.Formatter
	botName string
	logger  *zap.Logger
	// maxLen bounds one reply message; longer replies are split by line.
	maxLen int
}

func NewHandler(store repo.StatusReader, reply Replier, format report.Formatter, botName string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:   store,
		reply:   reply,
		format:  format,
		botName: botName,
		logger:  logger,
		maxLen:  telegram.MaxMessageLength,
	}
}

// Handle replies to status requests and ignores everything else.
func (h *Handler) Handle(ctx context.Context, m telegram.Message) {
	if !h.IsStatusRequest(m) {
		h.logger.Debug("message_ignored",
			zap.Int64("chat_id", m.ChatID),
			zap.String("chat_type", m.ChatType),
		)
		return
	}
	h.logger.Info("status_requested",
		zap.Int64("chat_id", m.ChatID),
		zap.String("chat_type", m.ChatType),
	)
	chunks := report.Split(h.Render(), h.maxLen)
	for i, text := range chunks {
		// Delivery failures are logged by the replier.
		if err := h.reply.Deliver(ctx, m.ChatID, text); err != nil {
			h.logger.Warn("status_reply_truncated",
				zap.Int64("chat_id", m.ChatID),
				zap.Int("sent", i),
				zap.Int("parts", len(chunks)),
			)
			return
		}
	}
}

// IsStatusRequest accepts "/status" in private chats and
// "/status@<bot>" in groups.
func (h *Handler) IsStatusRequest(m telegram.Message) bool {
	text := strings.TrimSpace(m.Text)
	switch {
	case m.ChatType == telegram.ChatPrivate:
		return text == Command
	case telegram.IsGroup(m.ChatType):
		cmd, bot, ok := strings.Cut(text, "@")
		return ok && h.botName != "" && cmd == Command && strings.EqualFold(bot, h.botName)
	}
	return false
}

// Render is the reply text for the current snapshot.
func (h *Handler) Render() string {
	return h.format.Status(h.store.Snapshot())
}
