package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherPublishesToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var created, closed int
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		closed++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated}); err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("created handlers ran %d times, want 2", created)
	}
	if closed != 0 {
		t.Fatalf("closed handler ran %d times, want 0", closed)
	}
}

func TestDispatcherRunsAllHandlersOnError(t *testing.T) {
	d := NewInMemoryDispatcher()

	first := errors.New("first failure")
	var ran int
	d.Subscribe(EventTicketClaimed, func(ctx context.Context, e Event) error {
		ran++
		return first
	})
	d.Subscribe(EventTicketClaimed, func(ctx context.Context, e Event) error {
		ran++
		return errors.New("second failure")
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketClaimed})
	if !errors.Is(err, first) {
		t.Fatalf("Publish returned %v, want first handler error", err)
	}
	if ran != 2 {
		t.Fatalf("handlers ran %d times, want 2", ran)
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventLeadQualified}); err != nil {
		t.Fatal(err)
	}
}
