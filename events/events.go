package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeStakeCreated   EventType = "stake_created"
	EventTypeStakeReleased  EventType = "stake_released"
	EventTypeStakeSwept     EventType = "stake_swept"
	EventTypeRateChanged    EventType = "rate_changed"
	EventTypeStakingToggled EventType = "staking_toggled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// StakeCreatedEvent represents a newly created stake
type StakeCreatedEvent struct {
	AccountID    int64
	Position     int64
	Amount       int64
	DurationDays int
	RateBps      int64
}

func (e StakeCreatedEvent) Type() EventType {
	return EventTypeStakeCreated
}

// StakeReleasedEvent represents a stake settled through an individual unstake
type StakeReleasedEvent struct {
	AccountID int64
	Position  int64
	Amount    int64
	Earnings  int64
}

func (e StakeReleasedEvent) Type() EventType {
	return EventTypeStakeReleased
}

// StakeSweptEvent represents a stake settled by the batch expiry sweep
type StakeSweptEvent struct {
	AccountID int64
	Position  int64
	Amount    int64
	Earnings  int64
}

func (e StakeSweptEvent) Type() EventType {
	return EventTypeStakeSwept
}

// RateChangedEvent represents an administrative rate table change
type RateChangedEvent struct {
	DurationIndex int
	DurationDays  int
	OldRateBps    int64
	NewRateBps    int64
}

func (e RateChangedEvent) Type() EventType {
	return EventTypeRateChanged
}

// StakingToggledEvent represents the enable gate being flipped
type StakingToggledEvent struct {
	Enabled bool
}

func (e StakingToggledEvent) Type() EventType {
	return EventTypeStakingToggled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Handlers run asynchronously; the ledger never blocks on notification.
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events published during a unit of work and flushes
// them to the real bus only after the database transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context that produced them.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
