package domain

import (
	"time"

	"github.com/govalues/decimal"
)

// EventType names an outbound engine event.
type EventType string

const (
	EventInstrumentsLoaded  EventType = "instruments.loaded"
	EventInstrumentsUpdated EventType = "instruments.updated"
	EventPortfolioChanged   EventType = "portfolio.changed"
	EventOrderSettled       EventType = "order.settled"
	EventOrderRejected      EventType = "order.rejected"
	EventNotify             EventType = "notify"
)

// EventTypes lists every outbound event type in publication order.
var EventTypes = []EventType{
	EventInstrumentsLoaded,
	EventInstrumentsUpdated,
	EventPortfolioChanged,
	EventOrderSettled,
	EventOrderRejected,
	EventNotify,
}

// ValidEventType reports whether s names a known event type.
func ValidEventType(s string) bool {
	for _, t := range EventTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// NotifyLevel is the severity of a user-facing notification.
type NotifyLevel string

const (
	LevelInfo    NotifyLevel = "info"
	LevelSuccess NotifyLevel = "success"
	LevelWarning NotifyLevel = "warning"
	LevelError   NotifyLevel = "error"
)

// Notification is a human-readable message for the notification sink.
type Notification struct {
	Level   NotifyLevel `json:"level"`
	Message string      `json:"message"`
}

// Event is published by the engine after every state transition. Only the
// payload fields relevant to Type are set.
type Event struct {
	Type         EventType        `json:"event"`
	Timestamp    time.Time        `json:"timestamp"`
	// Version is the snapshot version the event produced, or zero when the
	// event changed no state.
	Version      uint64           `json:"version,omitempty"`
	Instruments  []Instrument     `json:"instruments,omitempty"`
	Cash         *decimal.Decimal `json:"cash,omitempty"`
	Settlement   *Settlement      `json:"settlement,omitempty"`
	Rejection    *Rejection       `json:"rejection,omitempty"`
	Notification *Notification    `json:"notification,omitempty"`
}
