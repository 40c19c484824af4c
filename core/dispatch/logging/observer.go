package logging

import (
	"context"
	"time"

	"github.com/telecare/oncall/core/events"
	"github.com/telecare/oncall/core/logger"
	"github.com/telecare/oncall/internal/eventbus"
)

// Observer consumes ResolvedEvents from the bus and appends them to a
// LogStore. Run blocks until the context is canceled or the bus closes.
type Observer struct {
	store LogStore
	sub   <-chan eventbus.Event
	bus   eventbus.EventBus
	log   logger.Logger
}

// NewObserver subscribes to the bus.
func NewObserver(bus eventbus.EventBus, store LogStore, log logger.Logger) *Observer {
	return &Observer{store: store, sub: bus.Subscribe(), bus: bus, log: log}
}

// Run processes events until ctx is done.
func (o *Observer) Run(ctx context.Context) {
	defer o.bus.Unsubscribe(o.sub)
	for {
		select {
		case ev, ok := <-o.sub:
			if !ok {
				return
			}
			res, isRes := ev.(events.ResolvedEvent)
			if !isRes {
				continue
			}
			rec := LogRecord{
				Timestamp:   time.Now(),
				RequestID:   res.RequestID,
				Outcome:     res.Outcome.String(),
				ResponderID: res.ResponderID,
				Attempts:    res.Attempts,
				Elapsed:     res.Elapsed,
			}
			if err := o.store.Append(ctx, rec); err != nil {
				o.log.Errorf("audit append: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
