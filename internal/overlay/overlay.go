package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-data/internal/store"

	"go.uber.org/zap"
)

// Row is one displayed record as fetched from the list endpoint.
type Row = map[string]any

// Override is the last known authoritative field values pushed by an edit in
// this client. Seq orders concurrent overrides for the same id: the higher
// sequence wins on merge, so a stale broadcast cannot roll an edit back.
type Override struct {
	Fields    map[string]any `json:"fields"`
	Seq       uint64         `json:"seq"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// pendingUpdate is the single-shot payload stashed for the next view of a
// list: it survives one navigation, then is consumed and discarded.
type pendingUpdate struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	Seq       uint64         `json:"seq"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Overlay keeps a client's durable view-state for one tenant+kind pair:
// tombstoned ids, field overrides, and the pending-update handoff. Every
// fetched list is reconciled through Apply so a refetch can never resurrect a
// row this client deleted or roll back a field it edited.
type Overlay struct {
	kv     store.KV
	bus    Bus
	tenant string
	kind   string
	logger *zap.Logger
}

func New(kv store.KV, bus Bus, tenant, kind string, logger *zap.Logger) *Overlay {
	return &Overlay{kv: kv, bus: bus, tenant: tenant, kind: kind, logger: logger}
}

// pendingTTL bounds how long a stashed navigation payload can linger if the
// next view never mounts.
const pendingTTL = 10 * time.Minute

func (o *Overlay) key(suffix string) string {
	return fmt.Sprintf("overlay:%s:%s:%s", o.tenant, o.kind, suffix)
}

// EditTopic and DeleteTopic name the broadcast channels for one tenant+kind.
func EditTopic(tenant, kind string) string {
	return fmt.Sprintf("overlay:%s:%s:updated", tenant, kind)
}

func DeleteTopic(tenant, kind string) string {
	return fmt.Sprintf("overlay:%s:%s:deleted", tenant, kind)
}

func (o *Overlay) Tenant() string { return o.tenant }
func (o *Overlay) Kind() string   { return o.kind }

// RecordDeletion adds id to the durable tombstone set, drops any override for
// it, and broadcasts the deletion. Once tombstoned, the id is filtered out of
// every subsequent Apply regardless of what a refetch returns.
func (o *Overlay) RecordDeletion(ctx context.Context, id string) error {
	tombs, err := o.loadTombstones(ctx)
	if err != nil {
		return err
	}
	tombs[id] = struct{}{}
	if err := o.saveJSON(ctx, o.key("deletedIds"), setToList(tombs), 0); err != nil {
		return err
	}

	overrides, err := o.loadOverrides(ctx)
	if err == nil {
		if _, had := overrides[id]; had {
			delete(overrides, id)
			if err := o.saveJSON(ctx, o.key("overrides"), overrides, 0); err != nil && o.logger != nil {
				o.logger.Warn("failed to drop override for deleted id", zap.String("id", id), zap.Error(err))
			}
		}
	}

	return o.bus.Publish(ctx, DeleteTopic(o.tenant, o.kind), Event{
		Type:      EventDelete,
		ID:        id,
		UpdatedAt: time.Now(),
	})
}

// RecordEdit merges fields into the durable override map for id, stashes the
// same payload as the pending update for the next view, and broadcasts the
// edit. The local bus delivers before this returns, so the initiating view
// observes its own write ahead of any cross-process consumer.
func (o *Overlay) RecordEdit(ctx context.Context, id string, fields map[string]any) error {
	overrides, err := o.loadOverrides(ctx)
	if err != nil {
		return err
	}

	prev := overrides[id]
	merged := make(map[string]any, len(prev.Fields)+len(fields))
	for k, v := range prev.Fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	now := time.Now()
	next := Override{Fields: merged, Seq: prev.Seq + 1, UpdatedAt: now}
	overrides[id] = next
	if err := o.saveJSON(ctx, o.key("overrides"), overrides, 0); err != nil {
		return err
	}

	pending := pendingUpdate{ID: id, Fields: merged, Seq: next.Seq, UpdatedAt: now}
	if err := o.saveJSON(ctx, o.key("pendingUpdate"), pending, pendingTTL); err != nil && o.logger != nil {
		// The override already covers the steady state.
		o.logger.Warn("failed to stash pending update", zap.String("id", id), zap.Error(err))
	}

	return o.bus.Publish(ctx, EditTopic(o.tenant, o.kind), Event{
		Type:      EventEdit,
		ID:        id,
		Fields:    fields,
		Seq:       next.Seq,
		UpdatedAt: now,
	})
}

// Apply reconciles a freshly fetched list: tombstoned ids are dropped, then
// overrides replace the overridden fields row by row, keeping the fetched
// value for any field the override does not specify. KV failures degrade to
// returning the fetched list untouched (the view must still render).
func (o *Overlay) Apply(ctx context.Context, fresh []Row) []Row {
	tombs, terr := o.loadTombstones(ctx)
	overrides, oerr := o.loadOverrides(ctx)
	if terr != nil || oerr != nil {
		if o.logger != nil {
			o.logger.Warn("overlay state unavailable, rendering fetched list as-is",
				zap.NamedError("tombstones", terr), zap.NamedError("overrides", oerr))
		}
		return fresh
	}

	out := make([]Row, 0, len(fresh))
	for _, row := range fresh {
		id, _ := row["id"].(string)
		if _, deleted := tombs[id]; deleted {
			continue
		}
		if ov, ok := overrides[id]; ok {
			row = mergeRow(row, ov.Fields)
		}
		out = append(out, row)
	}
	return out
}

// ConsumePending returns the stashed navigation payload, if any, and discards
// it so it is applied exactly once.
func (o *Overlay) ConsumePending(ctx context.Context) (id string, fields map[string]any, ok bool) {
	raw, err := o.kv.Get(ctx, o.key("pendingUpdate"))
	if err != nil {
		if !errors.Is(err, store.ErrMiss) && o.logger != nil {
			o.logger.Warn("failed to read pending update", zap.Error(err))
		}
		return "", nil, false
	}
	_ = o.kv.Del(ctx, o.key("pendingUpdate"))

	var p pendingUpdate
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return "", nil, false
	}
	return p.ID, p.Fields, true
}

// Overrides exposes the current override map (used by views merging a
// received broadcast against their in-memory rows).
func (o *Overlay) Overrides(ctx context.Context) map[string]Override {
	m, err := o.loadOverrides(ctx)
	if err != nil {
		return map[string]Override{}
	}
	return m
}

func (o *Overlay) loadTombstones(ctx context.Context) (map[string]struct{}, error) {
	raw, err := o.kv.Get(ctx, o.key("deletedIds"))
	if errors.Is(err, store.ErrMiss) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (o *Overlay) loadOverrides(ctx context.Context) (map[string]Override, error) {
	raw, err := o.kv.Get(ctx, o.key("overrides"))
	if errors.Is(err, store.ErrMiss) {
		return map[string]Override{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m map[string]Override
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]Override{}
	}
	return m, nil
}

func (o *Overlay) saveJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return o.kv.Set(ctx, key, string(raw), ttl)
}

func setToList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func mergeRow(row Row, fields map[string]any) Row {
	merged := make(Row, len(row))
	for k, v := range row {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
