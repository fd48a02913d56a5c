package overlay

import (
	"context"
	"testing"

	"storefront-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOverlay(t *testing.T) *Overlay {
	t.Helper()
	return New(store.NewMemoryKV(), NewLocalBus(), "t1", "categories", zap.NewNop())
}

func TestTombstonePrecedence(t *testing.T) {
	ctx := context.Background()
	ov := newTestOverlay(t)

	require.NoError(t, ov.RecordDeletion(ctx, "c1"))

	// A refetch that still contains the deleted row must not resurrect it.
	fresh := []Row{
		{"id": "c1", "name": "Shoes"},
		{"id": "c2", "name": "Hats"},
	}
	got := ov.Apply(ctx, fresh)
	require.Len(t, got, 1)
	require.Equal(t, "c2", got[0]["id"])

	// And it stays gone on every later apply.
	got = ov.Apply(ctx, fresh)
	require.Len(t, got, 1)
}

func TestOverridePrecedence(t *testing.T) {
	ctx := context.Background()
	ov := newTestOverlay(t)

	require.NoError(t, ov.RecordEdit(ctx, "c1", map[string]any{"name": "Sneakers"}))

	// Simulates the race in the admin UI: a fetch started before the edit
	// resolves afterwards with the pre-edit name.
	got := ov.Apply(ctx, []Row{{"id": "c1", "name": "Shoes", "billboardId": "b1"}})
	require.Len(t, got, 1)
	require.Equal(t, "Sneakers", got[0]["name"])
	require.Equal(t, "b1", got[0]["billboardId"], "fields outside the override keep fetched values")
}

func TestOverridesMergeAcrossEdits(t *testing.T) {
	ctx := context.Background()
	ov := newTestOverlay(t)

	require.NoError(t, ov.RecordEdit(ctx, "c1", map[string]any{"name": "Sneakers"}))
	require.NoError(t, ov.RecordEdit(ctx, "c1", map[string]any{"billboardId": "b2"}))

	got := ov.Apply(ctx, []Row{{"id": "c1", "name": "Shoes", "billboardId": "b1"}})
	require.Equal(t, "Sneakers", got[0]["name"])
	require.Equal(t, "b2", got[0]["billboardId"])

	overrides := ov.Overrides(ctx)
	require.Equal(t, uint64(2), overrides["c1"].Seq, "each edit advances the sequence")
}

func TestDeletionDropsOverride(t *testing.T) {
	ctx := context.Background()
	ov := newTestOverlay(t)

	require.NoError(t, ov.RecordEdit(ctx, "c1", map[string]any{"name": "Sneakers"}))
	require.NoError(t, ov.RecordDeletion(ctx, "c1"))

	require.Empty(t, ov.Overrides(ctx))
	require.Empty(t, ov.Apply(ctx, []Row{{"id": "c1", "name": "Shoes"}}))
}

func TestPendingUpdateIsConsumedOnce(t *testing.T) {
	ctx := context.Background()
	ov := newTestOverlay(t)

	require.NoError(t, ov.RecordEdit(ctx, "c1", map[string]any{"name": "Sneakers"}))

	id, fields, ok := ov.ConsumePending(ctx)
	require.True(t, ok)
	require.Equal(t, "c1", id)
	require.Equal(t, "Sneakers", fields["name"])

	_, _, ok = ov.ConsumePending(ctx)
	require.False(t, ok, "pending update survives exactly one consumption")
}

func TestOverlayStateIsScopedPerTenantAndKind(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	bus := NewLocalBus()
	a := New(kv, bus, "t1", "categories", zap.NewNop())
	b := New(kv, bus, "t1", "colors", zap.NewNop())

	require.NoError(t, a.RecordDeletion(ctx, "c1"))

	got := b.Apply(ctx, []Row{{"id": "c1", "name": "Red"}})
	require.Len(t, got, 1, "a category tombstone must not hide a color")
}

func TestEditsBroadcastOnBothChannels(t *testing.T) {
	ctx := context.Background()
	local := NewLocalBus()
	bus := NewFanoutBus(local, nil, zap.NewNop())
	ov := New(store.NewMemoryKV(), bus, "t1", "categories", zap.NewNop())

	var gotEdit, gotDelete []Event
	cancelEdit, err := bus.Subscribe(ctx, EditTopic("t1", "categories"), func(ev Event) {
		gotEdit = append(gotEdit, ev)
	})
	require.NoError(t, err)
	defer cancelEdit()
	cancelDelete, err := bus.Subscribe(ctx, DeleteTopic("t1", "categories"), func(ev Event) {
		gotDelete = append(gotDelete, ev)
	})
	require.NoError(t, err)
	defer cancelDelete()

	require.NoError(t, ov.RecordEdit(ctx, "c1", map[string]any{"name": "Sneakers"}))
	require.NoError(t, ov.RecordDeletion(ctx, "c1"))

	// LocalBus delivers synchronously, so the events are visible already:
	// the initiating process observes its own writes before Publish returns.
	require.Len(t, gotEdit, 1)
	require.Equal(t, EventEdit, gotEdit[0].Type)
	require.Equal(t, "c1", gotEdit[0].ID)
	require.Len(t, gotDelete, 1)
	require.Equal(t, EventDelete, gotDelete[0].Type)
}
