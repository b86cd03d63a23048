package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

func TestFitmentStoreInsertFindUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFitmentStore(nil)
	now := time.Unix(1700000000, 0).UTC()

	id, err := store.Insert(ctx, fitment.Record{
		ProductID: "p1",
		Make:      "Subaru",
		Model:     "Outback",
		Year:      fitment.NullableYear("2007"),
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	require.Equal(t, "mem-000001", id)

	found, ok, err := store.Find(ctx, fitment.Key{
		Policy: fitment.KeyProductMakeModelYear, ProductID: "p1", Make: "Subaru", Model: "Outback", Year: "2007",
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, found)

	_, ok, err = store.Find(ctx, fitment.Key{
		Policy: fitment.KeyProductMakeModelYear, ProductID: "p1", Make: "Subaru", Model: "Legacy", Year: "2007",
	})
	require.NoError(t, err)
	require.False(t, ok)

	later := now.Add(time.Hour)
	require.NoError(t, store.Update(ctx, id, fitment.Fields{Title: "Rack", Make: "Subaru", Model: "Outback", UpdatedAt: later}))
	recs := store.Records()
	require.Len(t, recs, 1)
	require.Equal(t, "Rack", recs[0].Title)
	require.Equal(t, now, recs[0].CreatedAt)
	require.Equal(t, later, recs[0].UpdatedAt)
}

func TestFitmentStoreFreeTextKeyIgnoresMakeModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFitmentStore(nil)
	id, err := store.Insert(ctx, fitment.Record{ProductID: "p1", Make: "Honda", Model: "Accord", Year: fitment.NullableYear("2010")})
	require.NoError(t, err)

	found, ok, err := store.Find(ctx, fitment.Key{Policy: fitment.KeyProductYear, ProductID: "p1", Year: "2010"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, found)
}

func TestFitmentStoreNullYearMatchesSentinel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFitmentStore(nil)
	id, err := store.Insert(ctx, fitment.Record{ProductID: "p1", Make: "Acme"})
	require.NoError(t, err)

	found, ok, err := store.Find(ctx, fitment.Key{Policy: fitment.KeyProductYear, ProductID: "p1"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, found)

	_, ok, err = store.Find(ctx, fitment.Key{Policy: fitment.KeyProductYear, ProductID: "p1", Year: "2010"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFitmentStoreUpdateMissing(t *testing.T) {
	t.Parallel()

	err := NewFitmentStore(nil).Update(context.Background(), "nope", fitment.Fields{})
	require.True(t, errors.Is(err, fitment.ErrNotFound))
}

type stubIDGen struct{ err error }

func (g stubIDGen) NewID() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "fixed-id", nil
}

func TestFitmentStoreUsesIDGenerator(t *testing.T) {
	t.Parallel()

	id, err := NewFitmentStore(stubIDGen{}).Insert(context.Background(), fitment.Record{ProductID: "p"})
	require.NoError(t, err)
	require.Equal(t, "fixed-id", id)

	_, err = NewFitmentStore(stubIDGen{err: errors.New("entropy")}).Insert(context.Background(), fitment.Record{})
	require.ErrorContains(t, err, "generate record id")
}
