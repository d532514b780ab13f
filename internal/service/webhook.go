package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/store"
	"github.com/google/uuid"
)

const maxWebhookURLLength = 2048

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	URL    string
	Events []string
}

// WebhookService handles webhook CRUD and delivers engine events to
// subscribers. It implements engine.Publisher.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	inflight sync.WaitGroup
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		store:  webhookStore,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
		now:    time.Now,
	}
}

// Upsert validates the request and creates or updates one subscription per
// event type. It returns the resulting webhooks and whether any of them is
// new.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]domain.Webhook, bool, error) {
	if err := validateWebhookURL(req.URL); err != nil {
		return nil, false, err
	}
	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !domain.ValidEventType(event) {
			return nil, false, &domain.ValidationError{
				Message: "unknown event type: " + event + ". Must be one of: " + eventTypeList(),
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := s.now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]domain.Webhook, 0, len(events))
	for _, event := range events {
		stored, created := s.store.Upsert(domain.Webhook{
			WebhookID: uuid.New().String(),
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, stored)
	}
	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions.
func (s *WebhookService) List() []domain.Webhook {
	return s.store.List()
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// Publish delivers ev to the subscriber of its type, if any. Delivery is
// fire-and-forget; failures are logged.
func (s *WebhookService) Publish(ctx context.Context, ev domain.Event) {
	wh, ok := s.store.GetByEvent(string(ev.Type))
	if !ok {
		return
	}

	payload := webhookPayload{
		Event:     string(ev.Type),
		Timestamp: ev.Timestamp.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      eventData(ev),
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.deliver(context.WithoutCancel(ctx), wh, payload)
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (s *WebhookService) Wait() {
	s.inflight.Wait()
}

type webhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type instrumentsData struct {
	Instruments []domain.Instrument `json:"instruments"`
}

type portfolioData struct {
	Cash     string          `json:"cash"`
	Holdings []holdingsEntry `json:"holdings"`
}

type holdingsEntry struct {
	Instrument string `json:"instrument"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
}

// eventData builds the "data" object for ev. Instrument histories are left
// out to keep payloads small.
func eventData(ev domain.Event) any {
	switch ev.Type {
	case domain.EventInstrumentsLoaded, domain.EventInstrumentsUpdated:
		summaries := make([]domain.Instrument, len(ev.Instruments))
		for i, inst := range ev.Instruments {
			summaries[i] = inst.Summary()
		}
		return instrumentsData{Instruments: summaries}
	case domain.EventPortfolioChanged:
		data := portfolioData{Holdings: make([]holdingsEntry, 0, len(ev.Instruments))}
		if ev.Cash != nil {
			data.Cash = ev.Cash.String()
		}
		for _, inst := range ev.Instruments {
			data.Holdings = append(data.Holdings, holdingsEntry{
				Instrument: inst.Name,
				Quantity:   inst.Quantity,
				Price:      inst.Price.String(),
			})
		}
		return data
	case domain.EventOrderSettled:
		return ev.Settlement
	case domain.EventOrderRejected:
		return ev.Rejection
	case domain.EventNotify:
		return ev.Notification
	}
	return nil
}

// deliver sends the payload via HTTP POST with the delivery headers.
func (s *WebhookService) deliver(ctx context.Context, wh domain.Webhook, payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("encode webhook payload", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("build webhook request", slog.String("webhook_id", wh.WebhookID), slog.String("error", err.Error()))
		return
	}

	deliveryID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", payload.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("delivery_id", deliveryID),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook rejected delivery",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("delivery_id", deliveryID),
			slog.Int("status", resp.StatusCode),
		)
	}
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return &domain.ValidationError{Message: "url is required"}
	}
	if len(raw) > maxWebhookURLLength {
		return &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return &domain.ValidationError{Message: "url must use http or https scheme"}
	}
	return nil
}

func eventTypeList() string {
	names := make([]string, len(domain.EventTypes))
	for i, t := range domain.EventTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
