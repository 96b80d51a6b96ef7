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

func newProcessCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [item-id]",
		Short: "Run the merge processor starting from the given item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v); err != nil {
				return err
			}
			return runProcess(cmd.Context(), v, args[0])
		},
	}
	return cmd
}

func runProcess(ctx context.Context, v *viper.Viper, itemID string) error {
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

	if err := tl.ProcessFrom(ctx, itemID); err != nil {
		return err
	}
	fmt.Println("done")
	return nil
}

type cmdWriter struct{}

func (cmdWriter) Write(p []byte) (int, error) {
	return fmt.Print(string(p))
}
