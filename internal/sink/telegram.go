package sink

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hnwatch/internal/config"
	"hnwatch/internal/story"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends an HTML message per story to a single chat.
type Telegram struct {
	api    messageSender
	chatID int64
}

func NewTelegram(cfg config.TelegramSink) (*Telegram, error) {
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("chat id not configured")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: cfg.ChatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, s story.Story) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatTelegram(s))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send story %d: %w", s.ID, err)
	}
	return nil
}

// FormatTelegram renders s as Telegram HTML.
func FormatTelegram(s story.Story) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(s.Title))
	b.WriteString("</b>")
	if s.Hostname != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(s.Hostname))
	}
	fmt.Fprintf(&b, "\n%d points by %s | %d comments\n", s.Score, html.EscapeString(s.By), s.Descendants)
	if s.URL != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">Read</a> | ", html.EscapeString(s.URL))
	}
	fmt.Fprintf(&b, "<a href=\"%s\">HN</a>", s.DiscussURL())
	return b.String()
}
