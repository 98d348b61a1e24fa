package notify

import (
	"context"

	"github.com/wneessen/go-mail"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// EmailChannel submits one plain-text message per batch over SMTP with
// STARTTLS. It is constructed only when sender, password and receiver are
// all configured.
type EmailChannel struct {
	host     string
	port     int
	sender   string
	password string
	receiver string
	log      logx.Logger
}

func NewEmailChannel(host string, port int, sender, password, receiver string, log logx.Logger) *EmailChannel {
	return &EmailChannel{
		host:     host,
		port:     port,
		sender:   sender,
		password: password,
		receiver: receiver,
		log:      log,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, events []watch.ChangeEvent) error {
	msg := mail.NewMsg()
	if err := msg.From(c.sender); err != nil {
		return err
	}
	if err := msg.To(c.receiver); err != nil {
		return err
	}
	msg.Subject(subjectFor(events))
	msg.SetBodyString(mail.TypeTextPlain, renderPlain(events))

	client, err := mail.NewClient(c.host,
		mail.WithPort(c.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(c.sender),
		mail.WithPassword(c.password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
