package eventing

import (
	"context"
	"errors"
	"testing"
)

type statementClosed struct {
	ID string
}

type statementReopened struct {
	ID string
}

func TestInMemoryBus_DispatchByType(t *testing.T) {
	bus := NewInMemoryBus()

	var closed, reopened int
	bus.Subscribe(EventType(statementClosed{}), func(_ context.Context, event any) error {
		if _, ok := event.(statementClosed); !ok {
			t.Fatalf("unexpected event %T", event)
		}
		closed++
		return nil
	})
	bus.Subscribe(EventType(statementReopened{}), func(_ context.Context, _ any) error {
		reopened++
		return nil
	})

	ctx := context.Background()
	if err := bus.Publish(ctx, statementClosed{ID: "s-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(ctx, statementClosed{ID: "s-2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if closed != 2 || reopened != 0 {
		t.Fatalf("got closed=%d reopened=%d", closed, reopened)
	}
}

func TestInMemoryBus_PointerEventsShareType(t *testing.T) {
	bus := NewInMemoryBus()

	var seen int
	bus.Subscribe(EventType(statementClosed{}), func(_ context.Context, _ any) error {
		seen++
		return nil
	})
	if err := bus.Publish(context.Background(), &statementClosed{ID: "s-1"}); err != nil {
		t.Fatalf("publish pointer: %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected pointer event to reach value subscribers, got %d", seen)
	}
}

func TestInMemoryBus_PublishErrors(t *testing.T) {
	bus := NewInMemoryBus()

	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("want ErrNilEvent, got %v", err)
	}

	bus.Subscribe(EventType(statementClosed{}), func(_ context.Context, _ any) error {
		return errors.New("handler one failed")
	})
	bus.Subscribe(EventType(statementClosed{}), func(_ context.Context, _ any) error {
		return errors.New("handler two failed")
	})
	err := bus.Publish(context.Background(), statementClosed{ID: "s-1"})
	if err == nil || err.Error() != "handler one failed" {
		t.Fatalf("want first handler error, got %v", err)
	}
}
