package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore() *FallbackStore[Category, *Category] {
	return NewFallbackStore[Category, *Category]()
}

func TestFallbackStoreInsertPrepends(t *testing.T) {
	s := newTestStore()
	now := time.Now()

	s.Insert("t1", NewCategory("t1", "c1", Fields{"name": "Shoes", "billboardId": "b1"}, now))
	s.Insert("t1", NewCategory("t1", "c2", Fields{"name": "Hats", "billboardId": "b1"}, now.Add(time.Second)))

	got := s.List("t1")
	require.Len(t, got, 2)
	require.Equal(t, "c2", got[0].ID, "newest record must be first")
	require.Equal(t, "c1", got[1].ID)
}

func TestFallbackStoreTenantIsolation(t *testing.T) {
	s := newTestStore()
	now := time.Now()

	s.Insert("t1", NewCategory("t1", "c1", Fields{"name": "Shoes"}, now))

	require.Len(t, s.List("t1"), 1)
	require.Empty(t, s.List("t2"))
	_, found := s.Find("t2", "c1")
	require.False(t, found)
}

func TestFallbackStorePatch(t *testing.T) {
	s := newTestStore()
	created := time.Now().Add(-time.Hour)
	s.Insert("t1", NewCategory("t1", "c1", Fields{"name": "Shoes", "billboardId": "b1"}, created))

	patched := time.Now()
	got, found := s.Patch("t1", "c1", Fields{"name": "Sneakers"}, patched)
	require.True(t, found)
	require.Equal(t, "Sneakers", got.Name)
	require.Equal(t, "b1", got.BillboardID, "unspecified fields keep their value")
	require.True(t, got.UpdatedAt.After(got.CreatedAt))

	_, found = s.Patch("t1", "missing", Fields{"name": "X"}, patched)
	require.False(t, found)
}

func TestFallbackStoreRemoveIsIdempotent(t *testing.T) {
	s := newTestStore()
	s.Insert("t1", NewCategory("t1", "c1", Fields{"name": "Shoes"}, time.Now()))

	require.True(t, s.Remove("t1", "c1"))
	require.False(t, s.Remove("t1", "c1"), "second remove reports nothing removed")
	require.Empty(t, s.List("t1"))
}

func TestFallbackStoreListReturnsCopy(t *testing.T) {
	s := newTestStore()
	s.Insert("t1", NewCategory("t1", "c1", Fields{"name": "Shoes"}, time.Now()))

	got := s.List("t1")
	got[0].Name = "mutated"

	fresh := s.List("t1")
	require.Equal(t, "Shoes", fresh[0].Name)
}
