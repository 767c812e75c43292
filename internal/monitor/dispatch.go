package monitor

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// Handler consumes one decoded event. Handlers may fail or panic without
// affecting the monitor or other handlers.
type Handler func(ctx context.Context, ev types.HTLCEvent) error

// Dispatcher is the typed publish/subscribe surface monitors deliver events
// through: one handler slice per variant instead of a string-keyed emitter.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[types.EventType][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[types.EventType][]Handler)}
}

// OnEvent registers a handler for one event variant.
func (d *Dispatcher) OnEvent(eventType types.EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// OnAllEvents registers the same handler for every variant.
func (d *Dispatcher) OnAllEvents(handler Handler) {
	for _, t := range []types.EventType{types.EventHTLCCreated, types.EventHTLCWithdrawn, types.EventHTLCRefunded} {
		d.OnEvent(t, handler)
	}
}

// RemoveEventHandlers unregisters all handlers of one variant.
func (d *Dispatcher) RemoveEventHandlers(eventType types.EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, eventType)
}

// Dispatch delivers ev to every handler registered for its variant. Handler
// errors and panics are logged with the offending event's id and never abort
// the cycle or the remaining handlers.
func (d *Dispatcher) Dispatch(ctx context.Context, ev types.HTLCEvent) {
	d.mu.RLock()
	handlers := d.handlers[ev.Type]
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.invoke(ctx, handler, ev)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, ev types.HTLCEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().
				Str("htlc_id", ev.HTLCID).
				Stringer("event_type", ev.Type).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()

	if err := handler(ctx, ev); err != nil {
		log.Ctx(ctx).Error().
			Err(types.NewHandlerError("dispatch", err)).
			Str("htlc_id", ev.HTLCID).
			Stringer("event_type", ev.Type).
			Msg("event handler failed")
	}
}
