package backplane

import "context"

// Noop is the single-process backplane. Publishes succeed and are discarded;
// subscriptions never yield events. Using it degrades the server to
// local-process-only live delivery, which is the correct single-node behavior.
type Noop struct{}

// NewNoop creates a no-op backplane.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish discards the event.
func (*Noop) Publish(context.Context, Event) error {
	return nil
}

// Subscribe returns a channel that closes with the context.
func (*Noop) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// Close is a no-op.
func (*Noop) Close() error {
	return nil
}
