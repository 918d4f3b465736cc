package notifications

import (
	"context"

	"github.com/armysmp/storefront/pkg/httpclient"
	"github.com/armysmp/storefront/pkg/resilience"
)

// Embed colors
const (
	colorGreen  = 0x2ECC71
	colorOrange = 0xE67E22
	colorRed    = 0xE74C3C
)

// WebhookMessage is the Discord webhook execute payload
type WebhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is a Discord rich embed
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is a name/value row of an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// WebhookPoster posts a message to a chat webhook
type WebhookPoster interface {
	Post(ctx context.Context, msg *WebhookMessage) error
}

// DiscordWebhook posts to one Discord webhook URL behind a circuit breaker
type DiscordWebhook struct {
	client  *httpclient.Client
	breaker *resilience.CircuitBreaker
}

var _ WebhookPoster = (*DiscordWebhook)(nil)

// NewDiscordWebhook creates a poster for url
func NewDiscordWebhook(client *httpclient.Client, breaker *resilience.CircuitBreaker) *DiscordWebhook {
	return &DiscordWebhook{client: client, breaker: breaker}
}

// Post sends msg once; an open breaker drops it
func (d *DiscordWebhook) Post(ctx context.Context, msg *WebhookMessage) error {
	_, err := d.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return d.client.Post(ctx, "", msg, nil)
	})
	return err
}

type noopWebhook struct{}

func (noopWebhook) Post(context.Context, *WebhookMessage) error { return nil }
