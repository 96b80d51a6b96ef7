package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/murmuration/timelinekit/timeline"
)

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	e, err := New(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	return e, mr
}

func putSampleRaw(t *testing.T, mr *miniredis.Miniredis, sampleID, itemID string, date time.Time) {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.HSet(ctx, sampleKey(sampleID), map[string]interface{}{
		"date":           date.UnixNano(),
		"timelineItemId": itemID,
	}).Err())
	require.NoError(t, client.SAdd(ctx, itemSamplesKey(itemID), sampleID).Err())
}

func TestEnginePutAndReadItemBase(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	base := &timeline.TimelineItemBase{
		ID:        "item-1",
		IsVisit:   false,
		StartDate: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC),
		Source:    "mobile",
	}

	err := e.Write(ctx, func(tx timeline.WriteTx) error {
		return tx.PutItemBase(ctx, base)
	})
	require.NoError(t, err)

	var got *timeline.TimelineItemBase
	err = e.Read(ctx, func(tx timeline.ReadTx) error {
		var err error
		got, err = tx.ItemBase(ctx, "item-1")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, base.StartDate, got.StartDate)
	require.Equal(t, base.EndDate, got.EndDate)
	require.Equal(t, "mobile", got.Source)
	require.False(t, got.Deleted)
}

func TestEngineItemsInRange(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	early := &timeline.TimelineItemBase{ID: "early", StartDate: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 1, 1, 8, 30, 0, 0, time.UTC)}
	mid := &timeline.TimelineItemBase{ID: "mid", StartDate: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)}
	late := &timeline.TimelineItemBase{ID: "late", StartDate: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)}

	for _, b := range []*timeline.TimelineItemBase{early, mid, late} {
		err := e.Write(ctx, func(tx timeline.WriteTx) error { return tx.PutItemBase(ctx, b) })
		require.NoError(t, err)
	}

	var got []*timeline.TimelineItemBase
	err := e.Read(ctx, func(tx timeline.ReadTx) error {
		var err error
		got, err = tx.ItemsInRange(ctx, time.Date(2026, 1, 1, 8, 45, 0, 0, time.UTC), time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC))
		return err
	})
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, b := range got {
		ids[i] = b.ID
	}
	require.ElementsMatch(t, []string{"mid"}, ids)
}

func TestEngineReassignSampleAndSetSamplesChanged(t *testing.T) {
	e, mr := newTestEngine(t)
	ctx := context.Background()

	a := &timeline.TimelineItemBase{ID: "a", StartDate: time.Now(), EndDate: time.Now().Add(time.Minute)}
	b := &timeline.TimelineItemBase{ID: "b", StartDate: time.Now(), EndDate: time.Now().Add(time.Minute)}
	for _, base := range []*timeline.TimelineItemBase{a, b} {
		err := e.Write(ctx, func(tx timeline.WriteTx) error { return tx.PutItemBase(ctx, base) })
		require.NoError(t, err)
	}

	putSampleRaw(t, mr, "s1", "a", time.Now())

	err := e.Write(ctx, func(tx timeline.WriteTx) error {
		if err := tx.ReassignSample(ctx, "s1", "b"); err != nil {
			return err
		}
		if err := tx.SetSamplesChanged(ctx, "a", true); err != nil {
			return err
		}
		return tx.SetSamplesChanged(ctx, "b", true)
	})
	require.NoError(t, err)

	var aSamples, bSamples []*timeline.LocomotionSample
	var aBase, bBase *timeline.TimelineItemBase
	err = e.Read(ctx, func(tx timeline.ReadTx) error {
		var err error
		aSamples, err = tx.Samples(ctx, "a")
		if err != nil {
			return err
		}
		bSamples, err = tx.Samples(ctx, "b")
		if err != nil {
			return err
		}
		aBase, err = tx.ItemBase(ctx, "a")
		if err != nil {
			return err
		}
		bBase, err = tx.ItemBase(ctx, "b")
		return err
	})
	require.NoError(t, err)

	require.Empty(t, aSamples)
	require.Len(t, bSamples, 1)
	require.Equal(t, "s1", bSamples[0].ID)
	require.True(t, aBase.SamplesChanged)
	require.True(t, bBase.SamplesChanged)
}

func TestEnginePutVisitAndTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	walking := timeline.ActivityType("walking")
	trip := &timeline.TimelineItemTrip{ItemID: "t1", DistanceM: 250.5, SpeedMPS: 1.4, ClassifiedActivityType: &walking}
	visit := &timeline.TimelineItemVisit{ItemID: "v1", Center: timeline.Coordinate{Latitude: 45.5, Longitude: -122.6}, RadiusM: 75}

	err := e.Write(ctx, func(tx timeline.WriteTx) error {
		if err := tx.PutTrip(ctx, trip); err != nil {
			return err
		}
		return tx.PutVisit(ctx, visit)
	})
	require.NoError(t, err)

	var gotTrip *timeline.TimelineItemTrip
	var gotVisit *timeline.TimelineItemVisit
	err = e.Read(ctx, func(tx timeline.ReadTx) error {
		var err error
		gotTrip, err = tx.Trip(ctx, "t1")
		if err != nil {
			return err
		}
		gotVisit, err = tx.Visit(ctx, "v1")
		return err
	})
	require.NoError(t, err)

	require.Equal(t, 250.5, gotTrip.DistanceM)
	require.Equal(t, walking, *gotTrip.ActivityType())
	require.Equal(t, 75.0, gotVisit.RadiusM)
}
