package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventPriceUpdate      EventType = "PRICE_UPDATE"
	EventSignalGenerated  EventType = "SIGNAL_GENERATED"
	EventAnalysisStarted  EventType = "ANALYSIS_STARTED"
	EventAnalysisProgress EventType = "ANALYSIS_PROGRESS"
	EventAnalysisFailed   EventType = "ANALYSIS_FAILED"
	EventCreditsRestored  EventType = "CREDITS_RESTORED"
	EventCreditDeducted   EventType = "CREDIT_DEDUCTED"
	EventPremiumActivated EventType = "PREMIUM_ACTIVATED"
	EventPremiumExpired   EventType = "PREMIUM_EXPIRED"
	EventTamperDetected   EventType = "TAMPER_DETECTED"
	EventTamperCleared    EventType = "TAMPER_CLEARED"
	EventOutcomeRecorded  EventType = "OUTCOME_RECORDED"
	EventUserRegistered   EventType = "USER_REGISTERED"
	EventError            EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	UserID    string                 `json:"user_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishPriceUpdate publishes a feed tick for a symbol
func (eb *EventBus) PublishPriceUpdate(symbol string, price float64, volume int64) {
	eb.Publish(Event{
		Type: EventPriceUpdate,
		Data: map[string]interface{}{
			"symbol": symbol,
			"price":  price,
			"volume": volume,
		},
	})
}

// PublishSignalGenerated publishes a completed analysis result
func (eb *EventBus) PublishSignalGenerated(userID, symbol, signal string, confidence int) {
	eb.Publish(Event{
		Type:   EventSignalGenerated,
		UserID: userID,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"signal":     signal,
			"confidence": confidence,
		},
	})
}

// PublishCreditsRestored publishes a credit reset notification
func (eb *EventBus) PublishCreditsRestored(userID string, credits int) {
	eb.Publish(Event{
		Type:   EventCreditsRestored,
		UserID: userID,
		Data: map[string]interface{}{
			"credits": credits,
		},
	})
}

// PublishPremiumActivated publishes a premium activation
func (eb *EventBus) PublishPremiumActivated(userID string, expiry time.Time) {
	eb.Publish(Event{
		Type:   EventPremiumActivated,
		UserID: userID,
		Data: map[string]interface{}{
			"premium_expiry": expiry,
		},
	})
}

// PublishPremiumExpired publishes a downgrade to the free plan
func (eb *EventBus) PublishPremiumExpired(userID string) {
	eb.Publish(Event{
		Type:   EventPremiumExpired,
		UserID: userID,
		Data:   map[string]interface{}{},
	})
}

// PublishTamperDetected publishes a clock-integrity failure
func (eb *EventBus) PublishTamperDetected(userID, reason string) {
	eb.Publish(Event{
		Type:   EventTamperDetected,
		UserID: userID,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishTamperCleared publishes recovery from a tamper lock
func (eb *EventBus) PublishTamperCleared(userID string) {
	eb.Publish(Event{
		Type:   EventTamperCleared,
		UserID: userID,
		Data:   map[string]interface{}{},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source string, err error) {
	eb.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		},
	})
}
