package overlay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalBusDeliversSynchronously(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()

	var got []Event
	cancel, err := bus.Subscribe(ctx, "topic-a", func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, "topic-a", Event{Type: EventEdit, ID: "x"}))
	require.Len(t, got, 1, "handler runs before Publish returns")

	require.NoError(t, bus.Publish(ctx, "topic-b", Event{Type: EventEdit, ID: "y"}))
	require.Len(t, got, 1, "topics are isolated")
}

func TestLocalBusUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()

	var got int
	cancel, err := bus.Subscribe(ctx, "topic", func(Event) { got++ })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "topic", Event{Type: EventDelete, ID: "x"}))
	cancel()
	require.NoError(t, bus.Publish(ctx, "topic", Event{Type: EventDelete, ID: "x"}))
	require.Equal(t, 1, got)
}

// recordingBus captures publish order for the fanout test.
type recordingBus struct {
	name string
	log  *[]string
}

func (b *recordingBus) Publish(context.Context, string, Event) error {
	*b.log = append(*b.log, b.name)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string, Handler) (func(), error) {
	return func() {}, nil
}

func TestFanoutPublishesLocalFirst(t *testing.T) {
	var order []string
	bus := NewFanoutBus(
		&recordingBus{name: "local", log: &order},
		&recordingBus{name: "remote", log: &order},
		zap.NewNop(),
	)

	require.NoError(t, bus.Publish(context.Background(), "topic", Event{Type: EventEdit, ID: "x"}))
	require.Equal(t, []string{"local", "remote"}, order,
		"the initiating process must see its own write before the broadcast leaves")
}

func TestFanoutWithoutRemote(t *testing.T) {
	ctx := context.Background()
	bus := NewFanoutBus(NewLocalBus(), nil, zap.NewNop())

	var got int
	cancel, err := bus.Subscribe(ctx, "topic", func(Event) { got++ })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, "topic", Event{Type: EventEdit, ID: "x"}))
	require.Equal(t, 1, got)
}
