package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/murmuration/timelinekit/timeline"
	"github.com/murmuration/timelinekit/timeline/bus"
	"github.com/murmuration/timelinekit/timeline/store"
)

func newSegmentCmd(v *viper.Viper) *cobra.Command {
	var start, end string
	var watchFor time.Duration

	cmd := &cobra.Command{
		Use:   "segment [start-rfc3339] [end-rfc3339]",
		Short: "Watch a date range for --watch-for, then print the items fetched while watching",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v); err != nil {
				return err
			}
			start, end = args[0], args[1]
			return runSegment(cmd.Context(), v, start, end, watchFor)
		},
	}
	cmd.Flags().DurationVar(&watchFor, "watch-for", 10*time.Second, "how long to watch before exiting")
	return cmd
}

func runSegment(ctx context.Context, v *viper.Viper, startStr, endStr string, watchFor time.Duration) error {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return err
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return err
	}

	engine, err := store.New(ctx, store.Config{
		Addr:        v.GetString("redis.addr"),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	logger := log.NewLogfmtLogger(cmdWriter{})
	tl := timeline.New(timeline.Config{}, logger, engine, bus.New())

	ctx, cancel := context.WithTimeout(ctx, watchFor)
	defer cancel()

	seg := tl.NewSegment(ctx, "cli-segment", timeline.DateInterval{Start: start, End: end}, false, nil, nil)
	defer seg.Close()

	<-ctx.Done()

	items := seg.Items()
	fmt.Printf("%d items in range\n", len(items))
	for _, item := range items {
		fmt.Printf("- %s %s..%s\n", item.Base.ID, item.Base.StartDate, item.Base.EndDate)
	}
	return nil
}
