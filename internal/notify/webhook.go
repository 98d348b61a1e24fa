package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

const (
	webhookTimeout = 10 * time.Second

	colorNewItem = 0x3498DB
	colorRestock = 0x2ECC71
)

// WebhookChannel posts a Discord-compatible embed payload to a fixed URL.
type WebhookChannel struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func NewWebhookChannel(url string, log logx.Logger) *WebhookChannel {
	return &WebhookChannel{
		url:  url,
		http: &http.Client{Timeout: webhookTimeout},
		log:  log,
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []webhookField `json:"fields"`
	Footer webhookFooter  `json:"footer"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookFooter struct {
	Text string `json:"text"`
}

func (c *WebhookChannel) Send(ctx context.Context, events []watch.ChangeEvent) error {
	kept, dropped := capEvents(events)
	if dropped > 0 {
		c.log.Info("webhook fields truncated", logx.Int("dropped", dropped))
	}

	color := colorNewItem
	fields := make([]webhookField, 0, len(kept))
	for _, e := range kept {
		if e.Kind == watch.KindRestock {
			color = colorRestock
		}
		value := e.Price
		if e.Link != "" {
			value = fmt.Sprintf("%s\n%s", e.Price, e.Link)
		}
		fields = append(fields, webhookField{Name: e.Title, Value: value})
	}

	footer := fmt.Sprintf("%d change(s) this cycle", len(events))
	payload := webhookPayload{
		Content: subjectFor(events),
		Embeds: []webhookEmbed{{
			Title:  subjectFor(events),
			Color:  color,
			Fields: fields,
			Footer: webhookFooter{Text: footer},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook delivery: status %d", resp.StatusCode)
	}
	return nil
}
