package domain

import "time"

// Webhook is a subscription of a URL to one outbound event type.
type Webhook struct {
	WebhookID string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
