package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"StockBot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends the alert as a bot message to a single chat.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	subject string
}

// NewTelegram connects to the Telegram Bot API. It validates the token with a getMe call.
func NewTelegram(token string, chatID int64, subject string) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID, subject, &http.Client{})
}

// NewTelegramWithEndpoint is NewTelegram against a custom API endpoint format, e.g. a local Bot API server.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, subject string, client *http.Client) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, subject: subject}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, t.text(alert))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) text(alert models.Alert) string {
	var b strings.Builder
	b.WriteString(t.subject)
	b.WriteString("\n")
	if alert.Title != "" {
		b.WriteString(alert.Title)
		if alert.Price > 0 {
			fmt.Fprintf(&b, " (%.2f)", alert.Price)
		}
		b.WriteString("\n")
	}
	b.WriteString(alert.Message())
	return b.String()
}
