package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/pkg/eventbus"
	"github.com/google/uuid"
)

const eventSource = "storefront"

// OrderItem is a line of a placed order
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// OrderPlaced describes a freshly persisted order
type OrderPlaced struct {
	OrderID           uuid.UUID   `json:"order_id"`
	OrderNumber       string      `json:"order_number"`
	MinecraftUsername string      `json:"minecraft_username"`
	Email             string      `json:"email,omitempty"`
	Items             []OrderItem `json:"items"`
	Subtotal          float64     `json:"subtotal"`
	Discount          float64     `json:"discount"`
	Total             float64     `json:"total"`
	CouponCode        string      `json:"coupon_code,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

type userBlockedData struct {
	UserID uuid.UUID `json:"user_id"`
	IPs    []string  `json:"ips"`
}

// Notifier fans storefront events out to email, Discord and the event bus.
// Every delivery is dispatched in the background.
type Notifier struct {
	dispatcher *Dispatcher
	email      EmailSender
	ordersHook WebhookPoster
	alertsHook WebhookPoster
	publisher  eventbus.Publisher
	staffEmail string
}

var _ fraud.AlertNotifier = (*Notifier)(nil)

// NewNotifier creates a notifier; nil webhooks are skipped
func NewNotifier(dispatcher *Dispatcher, email EmailSender, ordersHook, alertsHook WebhookPoster, publisher eventbus.Publisher, staffEmail string) *Notifier {
	if ordersHook == nil {
		ordersHook = noopWebhook{}
	}
	if alertsHook == nil {
		alertsHook = noopWebhook{}
	}
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return &Notifier{
		dispatcher: dispatcher,
		email:      email,
		ordersHook: ordersHook,
		alertsHook: alertsHook,
		publisher:  publisher,
		staffEmail: staffEmail,
	}
}

// OrderPlaced sends the confirmation email, posts to the orders channel and
// publishes the order event
func (n *Notifier) OrderPlaced(ctx context.Context, order *OrderPlaced) {
	if order.Email != "" {
		n.dispatcher.Go(ctx, "order_confirmation_email", func(ctx context.Context) error {
			subject, text, html := orderConfirmationEmail(order)
			return n.email.Send(ctx, order.Email, subject, text, html)
		})
	}

	n.dispatcher.Go(ctx, "order_discord", func(ctx context.Context) error {
		return n.ordersHook.Post(ctx, orderMessage(order))
	})

	n.dispatcher.Go(ctx, "order_event", func(ctx context.Context) error {
		return n.publish(ctx, eventbus.SubjectOrderCreated, "order.created", order)
	})
}

// FraudAlertCreated alerts staff about a flagged order
func (n *Notifier) FraudAlertCreated(ctx context.Context, alert *fraud.FraudAlert) {
	n.dispatcher.Go(ctx, "fraud_alert_discord", func(ctx context.Context) error {
		return n.alertsHook.Post(ctx, fraudAlertMessage(alert))
	})

	if n.staffEmail != "" {
		n.dispatcher.Go(ctx, "fraud_alert_email", func(ctx context.Context) error {
			subject := fmt.Sprintf("[%s] Fraud alert for order %s", strings.ToUpper(string(alert.RiskLevel)), alert.OrderNumber)
			text := fraudAlertText(alert)
			return n.email.Send(ctx, n.staffEmail, subject, text, "<pre>"+text+"</pre>")
		})
	}

	n.dispatcher.Go(ctx, "fraud_alert_event", func(ctx context.Context) error {
		return n.publish(ctx, eventbus.SubjectFraudAlert, "fraud.alert_created", alert)
	})
}

// UserBlocked publishes the block so other services can react
func (n *Notifier) UserBlocked(ctx context.Context, userID uuid.UUID, ips []string) {
	n.dispatcher.Go(ctx, "user_blocked_event", func(ctx context.Context) error {
		return n.publish(ctx, eventbus.SubjectUserBlocked, "fraud.user_blocked", userBlockedData{UserID: userID, IPs: ips})
	})
}

func (n *Notifier) publish(ctx context.Context, subject, eventType string, data interface{}) error {
	event, err := eventbus.NewEvent(eventType, eventSource, data)
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, subject, event)
}

func orderMessage(order *OrderPlaced) *WebhookMessage {
	lines := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, fmt.Sprintf("%dx %s (%.2f)", item.Quantity, plain(item.Name), item.Subtotal))
	}

	fields := []EmbedField{
		{Name: "Player", Value: plain(order.MinecraftUsername), Inline: true},
		{Name: "Total", Value: fmt.Sprintf("%.2f", order.Total), Inline: true},
		{Name: "Items", Value: strings.Join(lines, "\n")},
	}
	if order.CouponCode != "" {
		fields = append(fields, EmbedField{Name: "Coupon", Value: fmt.Sprintf("%s (-%.2f)", order.CouponCode, order.Discount), Inline: true})
	}

	return &WebhookMessage{Embeds: []Embed{{
		Title:     "New order " + order.OrderNumber,
		Color:     colorGreen,
		Fields:    fields,
		Timestamp: order.CreatedAt.UTC().Format(time.RFC3339),
	}}}
}

func fraudAlertMessage(alert *fraud.FraudAlert) *WebhookMessage {
	color := colorOrange
	if alert.RiskLevel == fraud.RiskLevelCritical {
		color = colorRed
	}

	flags := make([]string, 0, len(alert.Flags))
	for _, f := range alert.Flags {
		flags = append(flags, fmt.Sprintf("+%d %s", f.Points, f.Description))
	}

	return &WebhookMessage{Embeds: []Embed{{
		Title:       fmt.Sprintf("Fraud alert: %s risk (%d)", alert.RiskLevel, alert.RiskScore),
		Description: strings.Join(flags, "\n"),
		Color:       color,
		Fields: []EmbedField{
			{Name: "Order", Value: alert.OrderNumber, Inline: true},
			{Name: "Player", Value: plain(alert.MinecraftUsername), Inline: true},
			{Name: "Value", Value: fmt.Sprintf("%.2f", alert.OrderValue), Inline: true},
			{Name: "IP", Value: alert.IPAddress, Inline: true},
		},
		Timestamp: alert.CreatedAt.UTC().Format(time.RFC3339),
	}}}
}

func fraudAlertText(alert *fraud.FraudAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order: %s\nPlayer: %s\nEmail: %s\nValue: %.2f\nRisk: %d (%s)\nIP: %s\n\nFlags:\n",
		alert.OrderNumber, plain(alert.MinecraftUsername), alert.UserEmail, alert.OrderValue,
		alert.RiskScore, alert.RiskLevel, alert.IPAddress)
	for _, f := range alert.Flags {
		fmt.Fprintf(&b, "  +%d %s\n", f.Points, f.Description)
	}
	return b.String()
}

// plain reverses the escaping applied to stored names for non-HTML channels
func plain(s string) string {
	return html.UnescapeString(s)
}

func orderConfirmationEmail(order *OrderPlaced) (subject, text, htmlBody string) {
	subject = fmt.Sprintf("Army SMP 2 order %s received", order.OrderNumber)

	var t, h strings.Builder
	fmt.Fprintf(&t, "Hi %s,\n\nThanks for your order %s.\n\n", plain(order.MinecraftUsername), order.OrderNumber)
	fmt.Fprintf(&h, "<p>Hi %s,</p><p>Thanks for your order <strong>%s</strong>.</p><ul>", order.MinecraftUsername, order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&t, "  %dx %s  %.2f\n", item.Quantity, plain(item.Name), item.Subtotal)
		fmt.Fprintf(&h, "<li>%dx %s: %.2f</li>", item.Quantity, item.Name, item.Subtotal)
	}
	h.WriteString("</ul>")
	if order.Discount > 0 {
		fmt.Fprintf(&t, "\nDiscount (%s): -%.2f", order.CouponCode, order.Discount)
		fmt.Fprintf(&h, "<p>Discount (%s): -%.2f</p>", order.CouponCode, order.Discount)
	}
	fmt.Fprintf(&t, "\nTotal: %.2f\n\nYour items will be delivered in-game once payment is confirmed.\n", order.Total)
	fmt.Fprintf(&h, "<p><strong>Total: %.2f</strong></p><p>Your items will be delivered in-game once payment is confirmed.</p>", order.Total)

	return subject, t.String(), h.String()
}
