package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBackendDown = errors.New("relation does not exist")

func timeNowForTest() time.Time { return time.Now() }

// failingDurable simulates a durable store that errors on every operation
// (schema not migrated, backend unreachable).
type failingDurable[T any] struct{}

func (failingDurable[T]) List(context.Context, string) ([]T, error) {
	return nil, errBackendDown
}

func (failingDurable[T]) Find(context.Context, string, string) (T, error) {
	var zero T
	return zero, errBackendDown
}

func (failingDurable[T]) Insert(context.Context, T) error { return errBackendDown }

func (failingDurable[T]) Update(context.Context, string, string, Fields) (T, error) {
	var zero T
	return zero, errBackendDown
}

func (failingDurable[T]) Delete(context.Context, string, string) error { return errBackendDown }

// memDurableCategories is a healthy durable double backed by the same list
// semantics the real backend has.
type memDurableCategories struct {
	rows *FallbackStore[Category, *Category]
}

func newMemDurableCategories() *memDurableCategories {
	return &memDurableCategories{rows: NewFallbackStore[Category, *Category]()}
}

func (d *memDurableCategories) List(_ context.Context, tenantID string) ([]Category, error) {
	return d.rows.List(tenantID), nil
}

func (d *memDurableCategories) Find(_ context.Context, tenantID, id string) (Category, error) {
	c, ok := d.rows.Find(tenantID, id)
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (d *memDurableCategories) Insert(_ context.Context, c Category) error {
	d.rows.Insert(c.TenantID, c)
	return nil
}

func (d *memDurableCategories) Update(_ context.Context, tenantID, id string, fields Fields) (Category, error) {
	c, ok := d.rows.Patch(tenantID, id, fields, timeNowForTest())
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (d *memDurableCategories) Delete(_ context.Context, tenantID, id string) error {
	if !d.rows.Remove(tenantID, id) {
		return ErrNotFound
	}
	return nil
}

func failingCategoryRepo(t *testing.T) *CategoryRepo {
	t.Helper()
	return NewCategoryRepo(failingDurable[Category]{}, zap.NewNop(), nil)
}

func TestCreateFallsBackTransparently(t *testing.T) {
	ctx := context.Background()
	repo := failingCategoryRepo(t)

	created, err := repo.Create(ctx, "t1", Fields{"name": "Shoes", "billboardId": "b1"})
	require.NoError(t, err, "durable failure must not surface")
	require.NotEmpty(t, created.ID)
	require.Equal(t, "t1", created.TenantID)

	got, err := repo.Get(ctx, "t1", created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestCreateSynthesizesUniqueIDs(t *testing.T) {
	ctx := context.Background()
	repo := failingCategoryRepo(t)

	a, err := repo.Create(ctx, "t1", Fields{"name": "A", "billboardId": "b1"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, "t1", Fields{"name": "B", "billboardId": "b1"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestListDegradesToEmptyOnTotalFailure(t *testing.T) {
	repo := failingCategoryRepo(t)
	got := repo.List(context.Background(), "t1")
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestListPrefersNonEmptyFallback(t *testing.T) {
	ctx := context.Background()
	durable := newMemDurableCategories()
	repo := NewCategoryRepo(durable, zap.NewNop(), nil)

	require.NoError(t, durable.Insert(ctx, NewCategory("t1", "db1", Fields{"name": "FromDB"}, timeNowForTest())))
	require.Equal(t, "db1", repo.List(ctx, "t1")[0].ID, "empty fallback defers to durable")

	// A fallback write makes the fallback authoritative for the tenant.
	repo.fallback.Insert("t1", NewCategory("t1", "mem1", Fields{"name": "FromMem"}, timeNowForTest()))
	got := repo.List(ctx, "t1")
	require.Len(t, got, 1)
	require.Equal(t, "mem1", got[0].ID)
}

func TestGetPrefersDurable(t *testing.T) {
	ctx := context.Background()
	durable := newMemDurableCategories()
	repo := NewCategoryRepo(durable, zap.NewNop(), nil)

	require.NoError(t, durable.Insert(ctx, NewCategory("t1", "c1", Fields{"name": "FromDB"}, timeNowForTest())))
	repo.fallback.Insert("t1", NewCategory("t1", "c1", Fields{"name": "FromMem"}, timeNowForTest()))

	got, err := repo.Get(ctx, "t1", "c1")
	require.NoError(t, err)
	require.Equal(t, "FromDB", got.Name)
}

func TestGetMissesBothBackends(t *testing.T) {
	repo := NewCategoryRepo(newMemDurableCategories(), zap.NewNop(), nil)
	_, err := repo.Get(context.Background(), "t1", "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUpsertsOnMiss(t *testing.T) {
	ctx := context.Background()
	repo := failingCategoryRepo(t)

	got, err := repo.Update(ctx, "t1", "cat_42", Fields{"name": "Revived", "billboardId": "b9"})
	require.NoError(t, err)
	require.Equal(t, "cat_42", got.ID, "upsert keeps the supplied id")
	require.Equal(t, "Revived", got.Name)
	require.Equal(t, "b9", got.BillboardID)

	again, err := repo.Get(ctx, "t1", "cat_42")
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestUpdatePatchesExistingFallbackRecord(t *testing.T) {
	ctx := context.Background()
	repo := failingCategoryRepo(t)

	created, err := repo.Create(ctx, "t1", Fields{"name": "Shoes", "billboardId": "b1"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, "t1", created.ID, Fields{"name": "Sneakers"})
	require.NoError(t, err)
	require.Equal(t, "Sneakers", updated.Name)
	require.Equal(t, "b1", updated.BillboardID)
	require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	require.Equal(t, 1, repo.fallback.Len("t1"), "patch must not duplicate the record")
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := failingCategoryRepo(t)

	require.NoError(t, repo.Delete(ctx, "t1", "never-existed"))
	require.NoError(t, repo.Delete(ctx, "t1", "never-existed"))
}

func TestDeleteRemovesFromBothBackends(t *testing.T) {
	ctx := context.Background()
	durable := newMemDurableCategories()
	repo := NewCategoryRepo(durable, zap.NewNop(), nil)

	require.NoError(t, durable.Insert(ctx, NewCategory("t1", "c1", Fields{"name": "A"}, timeNowForTest())))
	repo.fallback.Insert("t1", NewCategory("t1", "c1", Fields{"name": "A"}, timeNowForTest()))

	require.NoError(t, repo.Delete(ctx, "t1", "c1"))
	_, err := repo.Get(ctx, "t1", "c1")
	require.ErrorIs(t, err, ErrNotFound)
}

// Degraded-tenant lifecycle: create while the durable store is down, list,
// delete, delete again.
func TestFallbackLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := failingCategoryRepo(t)

	c1, err := repo.Create(ctx, "t1", Fields{"name": "Shoes", "billboardId": "b1"})
	require.NoError(t, err)

	list := repo.List(ctx, "t1")
	require.Len(t, list, 1)
	require.Equal(t, c1.ID, list[0].ID)

	require.NoError(t, repo.Delete(ctx, "t1", c1.ID))
	require.Empty(t, repo.List(ctx, "t1"))
	require.NoError(t, repo.Delete(ctx, "t1", c1.ID))
}

func TestNilDurableRunsFallbackOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepo(nil, zap.NewNop(), nil)

	created, err := repo.Create(ctx, "t1", Fields{"name": "Shoes", "billboardId": "b1"})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "t1", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}
