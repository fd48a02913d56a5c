package overlay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fetcher pulls a fresh list from the route handlers.
type Fetcher interface {
	FetchList(ctx context.Context, tenant, kind string) ([]Row, error)
}

// ListView is one mounted view of a tenant's entity list. It owns the merged
// in-memory rows, subscribes to the broadcast channels, and refetches on the
// usual triggers: mount, visibility regained, and navigation with an explicit
// refresh marker (debounced so a just-completed write can settle durably).
type ListView struct {
	ov          *Overlay
	fetch       Fetcher
	bus         Bus
	logger      *zap.Logger
	settleDelay time.Duration

	mu      sync.Mutex
	rows    []Row
	lastSeq map[string]uint64 // per-id, drops late out-of-order edit events
	cancels []func()
	timer   *time.Timer
}

const defaultSettleDelay = 300 * time.Millisecond

func NewListView(ov *Overlay, bus Bus, fetch Fetcher, logger *zap.Logger) *ListView {
	return &ListView{
		ov:          ov,
		fetch:       fetch,
		bus:         bus,
		logger:      logger,
		settleDelay: defaultSettleDelay,
		lastSeq:     map[string]uint64{},
	}
}

// SetSettleDelay overrides the post-navigation refetch delay (tests).
func (v *ListView) SetSettleDelay(d time.Duration) { v.settleDelay = d }

// Mount subscribes to the edit and delete channels and performs the initial
// fetch. The returned error reflects only the subscription; a failed initial
// fetch leaves the view empty but mounted (a later trigger retries).
func (v *ListView) Mount(ctx context.Context) error {
	cancelEdit, err := v.bus.Subscribe(ctx, EditTopic(v.ov.Tenant(), v.ov.Kind()), v.onEvent)
	if err != nil {
		return err
	}
	cancelDelete, err := v.bus.Subscribe(ctx, DeleteTopic(v.ov.Tenant(), v.ov.Kind()), v.onEvent)
	if err != nil {
		cancelEdit()
		return err
	}
	v.mu.Lock()
	v.cancels = append(v.cancels, cancelEdit, cancelDelete)
	v.mu.Unlock()

	_ = v.Refresh(ctx)
	return nil
}

func (v *ListView) Unmount() {
	v.mu.Lock()
	cancels := v.cancels
	v.cancels = nil
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Refresh refetches the list and re-applies the overlay on top: tombstones
// and overrides are merged into every fetch result, then any pending update
// is consumed. On fetch failure the previous rows are kept.
func (v *ListView) Refresh(ctx context.Context) error {
	fresh, err := v.fetch.FetchList(ctx, v.ov.Tenant(), v.ov.Kind())
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("list refresh failed, keeping current rows",
				zap.String("kind", v.ov.Kind()), zap.Error(err))
		}
		return err
	}

	rows := v.ov.Apply(ctx, fresh)
	if id, fields, ok := v.ov.ConsumePending(ctx); ok {
		rows = patchRows(rows, id, fields)
	}

	v.mu.Lock()
	v.rows = rows
	v.mu.Unlock()
	return nil
}

// VisibilityChanged refetches when the view becomes visible again.
func (v *ListView) VisibilityChanged(ctx context.Context, visible bool) {
	if visible {
		_ = v.Refresh(ctx)
	}
}

// Navigate handles arriving at the view through a navigation. With a refresh
// marker it refetches immediately and once more after the settle delay, to
// cover a write that had not landed durably when the navigation happened.
func (v *ListView) Navigate(ctx context.Context, refreshMarker bool) {
	_ = v.Refresh(ctx)
	if !refreshMarker {
		return
	}
	v.mu.Lock()
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.settleDelay, func() {
		_ = v.Refresh(context.Background())
	})
	v.mu.Unlock()
}

// Rows returns a snapshot of the merged list.
func (v *ListView) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Row, len(v.rows))
	copy(out, v.rows)
	return out
}

// onEvent applies a broadcast mutation to the in-memory rows. Duplicate
// delivery (local + Redis echo of our own publish) is harmless: deletions are
// idempotent and edits are ignored unless their sequence advances.
func (v *ListView) onEvent(ev Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Type {
	case EventDelete:
		kept := v.rows[:0:0]
		for _, row := range v.rows {
			if id, _ := row["id"].(string); id != ev.ID {
				kept = append(kept, row)
			}
		}
		v.rows = kept
		delete(v.lastSeq, ev.ID)
	case EventEdit:
		if ev.Seq != 0 && ev.Seq <= v.lastSeq[ev.ID] {
			return
		}
		v.lastSeq[ev.ID] = ev.Seq
		v.rows = patchRows(v.rows, ev.ID, ev.Fields)
	}
}

func patchRows(rows []Row, id string, fields map[string]any) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		if rid, _ := row["id"].(string); rid == id {
			out[i] = mergeRow(row, fields)
		} else {
			out[i] = row
		}
	}
	return out
}
