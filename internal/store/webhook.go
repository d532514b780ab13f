// Package store holds in-memory state that lives outside the engine.
package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/stocksim/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhook subscriptions.
// There is at most one subscription per event type.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook // webhook_id → webhook
	byEvent  map[string]*domain.Webhook // event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byEvent:  make(map[string]*domain.Webhook),
	}
}

// Upsert inserts w or points the existing subscription for w.Event at
// w.URL. The stored webhook_id never changes once created. It returns the
// stored subscription and whether it was newly created.
func (s *WebhookStore) Upsert(w domain.Webhook) (domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byEvent[w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return *existing, false
	}

	stored := w
	s.webhooks[w.WebhookID] = &stored
	s.byEvent[w.Event] = &stored
	return stored, true
}

// Get returns the webhook with the given ID or domain.ErrWebhookNotFound.
func (s *WebhookStore) Get(id string) (domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}
	return *w, nil
}

// GetByEvent returns the subscription for event, if any.
func (s *WebhookStore) GetByEvent(event string) (domain.Webhook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byEvent[event]
	if !ok {
		return domain.Webhook{}, false
	}
	return *w, true
}

// List returns every subscription ordered by event type. It never returns
// nil.
func (s *WebhookStore) List() []domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Webhook, 0, len(s.webhooks))
	for _, w := range s.webhooks {
		result = append(result, *w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event < result[j].Event })
	return result
}

// Delete removes a webhook by ID from both indexes.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)
	delete(s.byEvent, w.Event)
	return nil
}
