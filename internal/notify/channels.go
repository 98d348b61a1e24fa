package notify

import (
	"strings"

	"github.com/wtshilac/random-web-scraper/internal/config"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// BuildChannels constructs the channels whose credentials are present.
// Absent credentials disable a channel silently (debug log only); this is
// configuration, not an error.
func BuildChannels(cfg config.NotifyConfig, log logx.Logger) []Channel {
	var channels []Channel

	e := cfg.Email
	if set(e.Sender) && set(e.Password) && set(e.Receiver) {
		channels = append(channels, NewEmailChannel(e.Host, e.Port, e.Sender, e.Password, e.Receiver, log.With(logx.String("channel", "email"))))
	} else {
		log.Debug("email channel disabled (credentials absent)")
	}

	if set(cfg.Webhook.URL) {
		channels = append(channels, NewWebhookChannel(cfg.Webhook.URL, log.With(logx.String("channel", "webhook"))))
	} else {
		log.Debug("webhook channel disabled (url absent)")
	}

	if set(cfg.Telegram.Token) && cfg.Telegram.ChatID != 0 {
		tg, err := NewTelegramChannel(cfg.Telegram.Token, cfg.Telegram.ChatID, log.With(logx.String("channel", "telegram")))
		if err != nil {
			// A bad token is a per-channel failure, not a startup failure.
			log.Warn("telegram channel init failed; channel disabled", logx.Err(err))
		} else {
			channels = append(channels, tg)
		}
	} else {
		log.Debug("telegram channel disabled (token or chat absent)")
	}

	return channels
}

func set(s string) bool { return strings.TrimSpace(s) != "" }
