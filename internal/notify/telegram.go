package notify

import (
	"context"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// TelegramChannel sends the batch as one text message to a fixed chat.
// The bot is send-only; no poller is started.
type TelegramChannel struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

func NewTelegramChannel(token string, chatID int64, log logx.Logger) (*TelegramChannel, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &TelegramChannel{bot: bot, chatID: chatID, log: log}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, events []watch.ChangeEvent) error {
	// telebot has no context-aware send; honor cancellation at the boundary.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	text := subjectFor(events) + "\n\n" + renderPlain(events)
	_, err := c.bot.Send(tele.ChatID(c.chatID), text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
