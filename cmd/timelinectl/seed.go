package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/murmuration/timelinekit/timeline"
	"github.com/murmuration/timelinekit/timeline/store"
)

func newSeedCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a small synthetic visit/trip/visit chain for local exploration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v); err != nil {
				return err
			}
			return runSeed(cmd.Context(), v)
		},
	}
	return cmd
}

func runSeed(ctx context.Context, v *viper.Viper) error {
	engine, err := store.New(ctx, store.Config{
		Addr:        v.GetString("redis.addr"),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	items := demoChain()
	if err := engine.Seed(ctx, items); err != nil {
		return err
	}

	fmt.Printf("seeded %d items, starting from %q\n", len(items), items[0].Base.ID)
	return nil
}

// demoChain builds a visit-trip-visit chain with fresh ids, one of which
// (the middle trip) is deliberately too short to keep on its own, so
// `process` has something to merge.
func demoChain() []store.SeedItem {
	visitA := uuid.NewString()
	trip := uuid.NewString()
	visitB := uuid.NewString()

	now := time.Now().UTC().Truncate(time.Second)

	return []store.SeedItem{
		{
			Base: &timeline.TimelineItemBase{
				ID: visitA, IsVisit: true, Source: "mobile",
				StartDate: now, EndDate: now.Add(5 * time.Minute),
				NextItemID: strPtr(trip),
			},
			Visit: &timeline.TimelineItemVisit{ItemID: visitA, Center: timeline.Coordinate{Latitude: 45.5231, Longitude: -122.6765}, RadiusM: 30},
			Samples: []*timeline.LocomotionSample{
				{ID: uuid.NewString(), Date: now, Coordinate: &timeline.Coordinate{Latitude: 45.5231, Longitude: -122.6765}, RecordingState: timeline.RecordingOn, TimelineItemID: visitA},
			},
		},
		{
			Base: &timeline.TimelineItemBase{
				ID: trip, IsVisit: false, Source: "mobile",
				StartDate: now.Add(5 * time.Minute), EndDate: now.Add(5*time.Minute + 8*time.Second),
				PreviousItemID: strPtr(visitA), NextItemID: strPtr(visitB),
			},
			Trip: &timeline.TimelineItemTrip{ItemID: trip, DistanceM: 4, SpeedMPS: 0.5},
			Samples: []*timeline.LocomotionSample{
				{ID: uuid.NewString(), Date: now.Add(5 * time.Minute), Coordinate: &timeline.Coordinate{Latitude: 45.5232, Longitude: -122.6765}, RecordingState: timeline.RecordingOn, TimelineItemID: trip},
			},
		},
		{
			Base: &timeline.TimelineItemBase{
				ID: visitB, IsVisit: true, Source: "mobile",
				StartDate: now.Add(5*time.Minute + 8*time.Second), EndDate: now.Add(20 * time.Minute),
				PreviousItemID: strPtr(trip),
			},
			Visit: &timeline.TimelineItemVisit{ItemID: visitB, Center: timeline.Coordinate{Latitude: 45.5233, Longitude: -122.6765}, RadiusM: 30},
			Samples: []*timeline.LocomotionSample{
				{ID: uuid.NewString(), Date: now.Add(5*time.Minute + 8*time.Second), Coordinate: &timeline.Coordinate{Latitude: 45.5233, Longitude: -122.6765}, RecordingState: timeline.RecordingOn, TimelineItemID: visitB},
			},
		},
	}
}

func strPtr(s string) *string { return &s }
