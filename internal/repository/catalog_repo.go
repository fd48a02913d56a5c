package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-data/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when neither backend holds the record.
var ErrNotFound = errors.New("record not found")

// Durable is the capability set the repository expects from the relational
// backend. Every method may fail (schema not migrated, backend unreachable);
// failures are absorbed by the fallback policy, never surfaced to callers of
// fallback-covered operations.
type Durable[T any] interface {
	List(ctx context.Context, tenantID string) ([]T, error)
	Find(ctx context.Context, tenantID, id string) (T, error)
	Insert(ctx context.Context, rec T) error
	Update(ctx context.Context, tenantID, id string, fields Fields) (T, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// Repo orchestrates durable-store attempts with the fallback store as a
// safety net. A nil durable backend (DB disabled) behaves like a permanently
// failing one, degrading the repo to fallback-only.
type Repo[T any, PT interface {
	*T
	Entity
}] struct {
	kind      string
	idPrefix  string
	durable   Durable[T]
	fallback  *FallbackStore[T, PT]
	newRecord func(tenantID, id string, fields Fields, now time.Time) T
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewRepo[T any, PT interface {
	*T
	Entity
}](kind, idPrefix string, durable Durable[T], fallback *FallbackStore[T, PT],
	newRecord func(tenantID, id string, fields Fields, now time.Time) T,
	logger *zap.Logger, m *metrics.Metrics) *Repo[T, PT] {
	return &Repo[T, PT]{
		kind:      kind,
		idPrefix:  idPrefix,
		durable:   durable,
		fallback:  fallback,
		newRecord: newRecord,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// List returns the tenant's records, newest first. Once the fallback holds
// rows for a tenant it is treated as authoritative: a durable read could
// include rows the fallback deleted (or miss rows only the fallback has), so
// preferring the non-empty fallback keeps recent local writes visible.
// Never returns an error; total failure degrades to an empty list.
func (r *Repo[T, PT]) List(ctx context.Context, tenantID string) []T {
	r.metrics.Request(r.kind, "list")

	if r.fallback.Len(tenantID) > 0 {
		r.metrics.FallbackRead(r.kind, "list")
		return r.fallback.List(tenantID)
	}

	if r.durable != nil {
		recs, err := r.durable.List(ctx, tenantID)
		if err == nil {
			return recs
		}
		r.durableError("list", tenantID, err)
	}
	r.metrics.FallbackRead(r.kind, "list")
	return r.fallback.List(tenantID)
}

// Get tries the durable store first, then the fallback on failure or miss.
func (r *Repo[T, PT]) Get(ctx context.Context, tenantID, id string) (T, error) {
	r.metrics.Request(r.kind, "get")

	if r.durable != nil {
		rec, err := r.durable.Find(ctx, tenantID, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			r.durableError("get", tenantID, err)
		}
	}
	if rec, ok := r.fallback.Find(tenantID, id); ok {
		r.metrics.FallbackRead(r.kind, "get")
		return rec, nil
	}
	var zero T
	return zero, ErrNotFound
}

// Create attempts a durable insert; on failure the record lands in the
// fallback store under a synthesized time-based id. Exactly one backend ends
// up holding the new record.
func (r *Repo[T, PT]) Create(ctx context.Context, tenantID string, fields Fields) (T, error) {
	r.metrics.Request(r.kind, "create")
	now := r.now()

	if r.durable != nil {
		rec := r.newRecord(tenantID, uuid.NewString(), fields, now)
		err := r.durable.Insert(ctx, rec)
		if err == nil {
			return rec, nil
		}
		r.durableError("create", tenantID, err)
	}

	rec := r.newRecord(tenantID, r.synthID(tenantID, now), fields, now)
	r.fallback.Insert(tenantID, rec)
	r.metrics.FallbackWrite(r.kind, "create")
	return rec, nil
}

// Update attempts a durable update. On failure: patch the fallback record if
// it exists, otherwise treat the update as an implicit create with the given
// id (upsert-on-miss) so edits made while the durable store is unreachable
// are never silently lost.
func (r *Repo[T, PT]) Update(ctx context.Context, tenantID, id string, fields Fields) (T, error) {
	r.metrics.Request(r.kind, "update")
	now := r.now()

	if r.durable != nil {
		rec, err := r.durable.Update(ctx, tenantID, id, fields)
		if err == nil {
			return rec, nil
		}
		r.durableError("update", tenantID, err)
	}

	if rec, ok := r.fallback.Patch(tenantID, id, fields, now); ok {
		r.metrics.FallbackWrite(r.kind, "update")
		return rec, nil
	}

	rec := r.newRecord(tenantID, id, fields, now)
	r.fallback.Insert(tenantID, rec)
	r.metrics.FallbackWrite(r.kind, "upsert")
	return rec, nil
}

// Delete ensures the id is absent from both backends. Idempotent: deleting a
// record neither backend has still succeeds.
func (r *Repo[T, PT]) Delete(ctx context.Context, tenantID, id string) error {
	r.metrics.Request(r.kind, "delete")

	if r.durable != nil {
		if err := r.durable.Delete(ctx, tenantID, id); err != nil && !errors.Is(err, ErrNotFound) {
			r.durableError("delete", tenantID, err)
		}
	}
	if r.fallback.Remove(tenantID, id) {
		r.metrics.FallbackWrite(r.kind, "delete")
	}
	return nil
}

// Kind names the entity kind this repo serves ("categories", "products", ...).
func (r *Repo[T, PT]) Kind() string { return r.kind }

// synthID builds a locally-unique time-based id for fallback-only records,
// e.g. "cat_1714070000000". Same-millisecond collisions fall back to a uuid.
func (r *Repo[T, PT]) synthID(tenantID string, now time.Time) string {
	id := fmt.Sprintf("%s_%d", r.idPrefix, now.UnixMilli())
	if _, taken := r.fallback.Find(tenantID, id); taken {
		id = r.idPrefix + "_" + uuid.NewString()
	}
	return id
}

func (r *Repo[T, PT]) durableError(op, tenantID string, err error) {
	r.metrics.DurableError(r.kind, op)
	if r.logger != nil {
		r.logger.Warn("durable store failed, using fallback",
			zap.String("kind", r.kind),
			zap.String("op", op),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}

// Per-kind aliases and constructors keep the wiring in main readable.

type (
	BillboardRepo = Repo[Billboard, *Billboard]
	CategoryRepo  = Repo[Category, *Category]
	SizeRepo      = Repo[Size, *Size]
	ColorRepo     = Repo[Color, *Color]
	ProductRepo   = Repo[Product, *Product]
	OrderRepo     = Repo[Order, *Order]
)

func NewBillboardRepo(durable Durable[Billboard], logger *zap.Logger, m *metrics.Metrics) *BillboardRepo {
	return NewRepo("billboards", "bb", durable, NewFallbackStore[Billboard, *Billboard](), NewBillboard, logger, m)
}

func NewCategoryRepo(durable Durable[Category], logger *zap.Logger, m *metrics.Metrics) *CategoryRepo {
	return NewRepo("categories", "cat", durable, NewFallbackStore[Category, *Category](), NewCategory, logger, m)
}

func NewSizeRepo(durable Durable[Size], logger *zap.Logger, m *metrics.Metrics) *SizeRepo {
	return NewRepo("sizes", "size", durable, NewFallbackStore[Size, *Size](), NewSize, logger, m)
}

func NewColorRepo(durable Durable[Color], logger *zap.Logger, m *metrics.Metrics) *ColorRepo {
	return NewRepo("colors", "color", durable, NewFallbackStore[Color, *Color](), NewColor, logger, m)
}

func NewProductRepo(durable Durable[Product], logger *zap.Logger, m *metrics.Metrics) *ProductRepo {
	return NewRepo("products", "prod", durable, NewFallbackStore[Product, *Product](), NewProduct, logger, m)
}

func NewOrderRepo(durable Durable[Order], logger *zap.Logger, m *metrics.Metrics) *OrderRepo {
	return NewRepo("orders", "order", durable, NewFallbackStore[Order, *Order](), NewOrder, logger, m)
}
