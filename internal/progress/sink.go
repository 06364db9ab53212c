package progress

import "context"

// Sink consumes batches of progress events. Implementations must tolerate
// repeated calls, honor ctx deadlines, and may be invoked concurrently.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events. Hub satisfies it; store jobs depend
// on nothing more.
type Emitter interface {
	Emit(evt Event)
}

// Discard is an Emitter that drops everything, for wiring tests and disabled
// observability.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(Event) {}
