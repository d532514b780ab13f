package service

import (
	"fmt"
	"testing"

	"github.com/efreitasn/stocksim/internal/domain"
	"pgregory.net/rapid"
)

// Feature: stock-simulation, Property 9: Webhook upsert idempotency
// Re-registering the same event with the same URL keeps the subscription
// unchanged, and changing the URL keeps its webhook_id.
func TestProperty_WebhookUpsertIdempotency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := newTestWebhookService()

		event := string(rapid.SampledFrom(domain.EventTypes).Draw(t, "event"))
		url1 := fmt.Sprintf("https://example.com/hook/%d", rapid.IntRange(1, 99999).Draw(t, "urlSuffix1"))
		url2 := fmt.Sprintf("https://other.example.com/hook/%d", rapid.IntRange(1, 99999).Draw(t, "urlSuffix2"))

		webhooks1, created1, err := svc.Upsert(UpsertWebhookRequest{URL: url1, Events: []string{event}})
		if err != nil {
			t.Fatalf("initial upsert failed: %v", err)
		}
		if !created1 {
			t.Fatal("expected created=true on first registration")
		}
		id := webhooks1[0].WebhookID

		webhooks2, created2, err := svc.Upsert(UpsertWebhookRequest{URL: url1, Events: []string{event}})
		if err != nil {
			t.Fatalf("idempotent upsert failed: %v", err)
		}
		if created2 {
			t.Fatal("expected created=false on re-registration")
		}
		if webhooks2[0] != webhooks1[0] {
			t.Fatalf("subscription changed: %+v → %+v", webhooks1[0], webhooks2[0])
		}

		webhooks3, created3, err := svc.Upsert(UpsertWebhookRequest{URL: url2, Events: []string{event}})
		if err != nil {
			t.Fatalf("url update failed: %v", err)
		}
		if created3 {
			t.Fatal("expected created=false on URL update")
		}
		if webhooks3[0].WebhookID != id || webhooks3[0].URL != url2 {
			t.Fatalf("unexpected subscription after update: %+v", webhooks3[0])
		}
		if got := svc.List(); len(got) != 1 {
			t.Fatalf("expected 1 subscription, got %d", len(got))
		}
	})
}
