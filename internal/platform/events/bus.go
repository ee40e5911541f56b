package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CaseTransitioned is emitted after a case status change commits.
type CaseTransitioned struct {
	CaseID     uuid.UUID
	FromStatus string
	ToStatus   string
	Actor      string
	Reason     string
	OccurredAt time.Time
}

// InventoryRecorded is emitted after an inventory event is appended to the
// ledger.
type InventoryRecorded struct {
	ItemID     uuid.UUID
	EventType  string
	CaseID     *uuid.UUID
	Actor      string
	OccurredAt time.Time
}

// Listener receives domain events. Handlers must not block; slow consumers
// should hand off to their own goroutines.
type Listener interface {
	OnCaseTransitioned(ctx context.Context, evt CaseTransitioned)
	OnInventoryRecorded(ctx context.Context, evt InventoryRecorded)
}

// Bus fans domain events out to registered listeners in-process.
// Registration is expected at startup; publishing is safe for concurrent
// use.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bus) PublishCaseTransitioned(ctx context.Context, evt CaseTransitioned) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.listeners {
		l.OnCaseTransitioned(ctx, evt)
	}
}

func (b *Bus) PublishInventoryRecorded(ctx context.Context, evt InventoryRecorded) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.listeners {
		l.OnInventoryRecorded(ctx, evt)
	}
}

// LogListener writes every domain event to the structured log, forming the
// default audit trail for state changes.
type LogListener struct {
	logger zerolog.Logger
}

func NewLogListener(logger zerolog.Logger) *LogListener {
	return &LogListener{logger: logger}
}

func (l *LogListener) OnCaseTransitioned(ctx context.Context, evt CaseTransitioned) {
	l.logger.Info().
		Str("event", "case_transitioned").
		Str("case_id", evt.CaseID.String()).
		Str("from_status", evt.FromStatus).
		Str("to_status", evt.ToStatus).
		Str("actor", evt.Actor).
		Str("reason", evt.Reason).
		Time("occurred_at", evt.OccurredAt).
		Msg("domain event")
}

func (l *LogListener) OnInventoryRecorded(ctx context.Context, evt InventoryRecorded) {
	e := l.logger.Info().
		Str("event", "inventory_recorded").
		Str("item_id", evt.ItemID.String()).
		Str("event_type", evt.EventType).
		Str("actor", evt.Actor).
		Time("occurred_at", evt.OccurredAt)
	if evt.CaseID != nil {
		e = e.Str("case_id", evt.CaseID.String())
	}
	e.Msg("domain event")
}
