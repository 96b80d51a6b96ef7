package timeline

import "context"

// Bus is the change-notification contract from spec.md §6: every commit
// publishes the union of date ranges it touched, and any number of
// subscribers (one per live TimelineSegment) receive every published
// interval. timelinekit/timeline/bus provides an in-process implementation.
type Bus interface {
	Publish(intervals ...DateInterval)

	// Subscribe returns a channel of published intervals and a cancel
	// func. The channel is closed once cancel is called or ctx is done.
	Subscribe(ctx context.Context) (<-chan DateInterval, func())
}

// ForegroundState is the consumed contract for §6's ForegroundState.isActive().
type ForegroundState interface {
	IsActive() bool
}

// TimelineRecorder is the consumed contract for §6's
// TimelineRecorder.currentItemId().
type TimelineRecorder interface {
	CurrentItemID() (string, bool)
}
