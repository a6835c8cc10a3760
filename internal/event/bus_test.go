package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	bus := newTestBus()

	var order []string
	bus.Subscribe(KindAssigned, func(ctx context.Context, ev TaskEvent) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(KindAssigned, func(ctx context.Context, ev TaskEvent) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(context.Background(), TaskEvent{Kind: KindAssigned})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishOnlyMatchingKind(t *testing.T) {
	bus := newTestBus()

	calls := 0
	bus.Subscribe(KindPaused, func(ctx context.Context, ev TaskEvent) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), TaskEvent{Kind: KindAssigned})
	assert.Zero(t, calls)

	bus.Publish(context.Background(), TaskEvent{Kind: KindPaused})
	assert.Equal(t, 1, calls)
}

func TestHandlerErrorDoesNotStopFanOut(t *testing.T) {
	bus := newTestBus()

	var reached bool
	bus.Subscribe(KindBreached, func(ctx context.Context, ev TaskEvent) error {
		return errors.New("boom")
	})
	bus.Subscribe(KindBreached, func(ctx context.Context, ev TaskEvent) error {
		reached = true
		return nil
	})

	bus.Publish(context.Background(), TaskEvent{Kind: KindBreached})

	assert.True(t, reached, "an earlier handler failing must not block later ones")
}

func TestPublishStampsOccurredAt(t *testing.T) {
	bus := newTestBus()

	var got TaskEvent
	bus.Subscribe(KindCommented, func(ctx context.Context, ev TaskEvent) error {
		got = ev
		return nil
	})

	bus.Publish(context.Background(), TaskEvent{
		Kind: KindCommented,
		Task: model.Task{ID: 1},
	})

	assert.False(t, got.OccurredAt.IsZero())
}
