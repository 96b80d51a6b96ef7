package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/murmuration/timelinekit/timeline"
	"github.com/murmuration/timelinekit/timeline/store"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [item-id]",
		Short: "Print an item's base/visit/trip fields and sample count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v); err != nil {
				return err
			}
			return runInspect(cmd.Context(), v, args[0])
		},
	}
	return cmd
}

func runInspect(ctx context.Context, v *viper.Viper, itemID string) error {
	engine, err := store.New(ctx, store.Config{
		Addr:        v.GetString("redis.addr"),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	return engine.Read(ctx, func(tx timeline.ReadTx) error {
		base, err := tx.ItemBase(ctx, itemID)
		if err != nil {
			return err
		}
		fmt.Printf("id:        %s\n", base.ID)
		fmt.Printf("isVisit:   %v\n", base.IsVisit)
		fmt.Printf("startDate: %s\n", base.StartDate)
		fmt.Printf("endDate:   %s\n", base.EndDate)
		fmt.Printf("source:    %s\n", base.Source)
		fmt.Printf("previous:  %v\n", base.PreviousItemID)
		fmt.Printf("next:      %v\n", base.NextItemID)
		fmt.Printf("disabled:  %v, deleted: %v, samplesChanged: %v\n", base.Disabled, base.Deleted, base.SamplesChanged)

		if base.IsVisit {
			visit, err := tx.Visit(ctx, itemID)
			if err != nil {
				return err
			}
			if visit != nil {
				fmt.Printf("visit:     center=(%.6f,%.6f) radius=%.1fm\n", visit.Center.Latitude, visit.Center.Longitude, visit.RadiusM)
			}
		} else {
			trip, err := tx.Trip(ctx, itemID)
			if err != nil {
				return err
			}
			if trip != nil {
				fmt.Printf("trip:      distance=%.1fm speed=%.2fm/s activityType=%v\n", trip.DistanceM, trip.SpeedMPS, trip.ActivityType())
			}
		}

		samples, err := tx.Samples(ctx, itemID)
		if err != nil {
			return err
		}
		fmt.Printf("samples:   %d\n", len(samples))
		return nil
	})
}
