package timeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/murmuration/timelinekit/timeline/workerpool"
)

const segmentDebounce = 1 * time.Second

var metricSegmentDebounceQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "timeline",
	Name:      "segment_debounce_pending",
	Help:      "Number of segments with a refetch scheduled but not yet fired.",
})

// TimelineSegment watches a DateInterval for change notifications and keeps
// its own snapshot of the items overlapping that interval current, per
// spec.md §4.8. One TimelineSegment exists per UI-affinity consumer (a
// screen showing one day, say); release it via Close when the consumer
// goes away.
type TimelineSegment struct {
	id                      string
	interval                DateInterval
	shouldReprocessOnUpdate bool

	engine    Engine
	bus       Bus
	fg        ForegroundState
	recorder  TimelineRecorder
	processor *Processor
	logger    log.Logger

	flight *singleflight.Group
	pool   *workerpool.Pool

	mu      sync.Mutex
	current []*TimelineItem

	samplesMu sync.Mutex
	samples   map[string][]*LocomotionSample

	cancelSub func()
	done      chan struct{}
}

// NewTimelineSegment starts watching interval. The caller owns ctx's
// lifetime scope: cancelling ctx or calling Close stops the subscription.
func NewTimelineSegment(
	ctx context.Context,
	id string,
	interval DateInterval,
	shouldReprocessOnUpdate bool,
	engine Engine,
	bus Bus,
	fg ForegroundState,
	recorder TimelineRecorder,
	processor *Processor,
	logger log.Logger,
) *TimelineSegment {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	events, cancel := bus.Subscribe(ctx)

	seg := &TimelineSegment{
		id:                      id,
		interval:                interval,
		shouldReprocessOnUpdate: shouldReprocessOnUpdate,
		engine:                  engine,
		bus:                     bus,
		fg:                      fg,
		recorder:                recorder,
		processor:               processor,
		logger:                  logger,
		flight:                  &singleflight.Group{},
		pool:                    workerpool.New(nil),
		samples:                 make(map[string][]*LocomotionSample),
		cancelSub:               cancel,
		done:                    make(chan struct{}),
	}

	go seg.run(ctx, events)

	return seg
}

// Close cancels the subscription, stops the segment's goroutine, and shuts
// down its hydration worker pool.
func (seg *TimelineSegment) Close() {
	seg.cancelSub()
	<-seg.done
	seg.pool.Shutdown()
}

// Items returns the segment's last-published snapshot, ordered by EndDate
// descending per spec.md §4.8 step 3.
func (seg *TimelineSegment) Items() []*TimelineItem {
	seg.mu.Lock()
	defer seg.mu.Unlock()
	out := make([]*TimelineItem, len(seg.current))
	copy(out, seg.current)
	return out
}

func (seg *TimelineSegment) run(ctx context.Context, events <-chan DateInterval) {
	defer close(seg.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(segmentDebounce)
			timerC = timer.C
			metricSegmentDebounceQueue.Inc()
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(segmentDebounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case interval, ok := <-events:
			if !ok {
				return
			}
			if seg.interval.Intersects(interval) {
				schedule()
			}

		case <-timerC:
			timer = nil
			timerC = nil
			metricSegmentDebounceQueue.Dec()

			if _, err, _ := seg.flight.Do(seg.id, func() (interface{}, error) {
				return nil, seg.refetch(ctx)
			}); err != nil {
				level.Warn(seg.logger).Log("msg", "segment refetch failed", "segment", seg.id, "err", err)
			}
		}
	}
}

// refetch implements spec.md §4.8 steps 3-4: reload overlapping items,
// rehydrate samples (reusing cached ones when the item is unchanged), then
// reprocess if the gating conditions hold. Hydration fans out across the
// segment's worker pool so a window with many items doesn't hydrate them
// one at a time.
func (seg *TimelineSegment) refetch(ctx context.Context) error {
	var bases []*TimelineItemBase

	err := seg.engine.Read(ctx, func(tx ReadTx) error {
		var err error
		bases, err = tx.ItemsInRange(ctx, seg.interval.Start, seg.interval.End)
		return err
	})
	if err != nil {
		return wrapPersistence(err, "refetch items in range")
	}

	payloads := make([]interface{}, len(bases))
	for i, base := range bases {
		payloads[i] = base
	}

	results, err := seg.pool.RunAll(payloads, func(payload interface{}) (interface{}, error) {
		return seg.hydrate(ctx, payload.(*TimelineItemBase))
	})
	if err != nil {
		return err
	}

	items := make([]*TimelineItem, 0, len(results))
	for _, r := range results {
		items = append(items, r.(*TimelineItem))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Base.EndDate.After(items[j].Base.EndDate)
	})

	seg.mu.Lock()
	seg.current = items
	seg.mu.Unlock()

	if !seg.shouldReprocessOnUpdate {
		return nil
	}
	if seg.fg == nil || !seg.fg.IsActive() {
		return nil
	}

	recordingID, recording := "", false
	if seg.recorder != nil {
		recordingID, recording = seg.recorder.CurrentItemID()
	}
	if recording {
		for _, item := range items {
			if item.Base.ID != recordingID {
				continue
			}
			keeper, err := isWorthKeeping(item)
			if err != nil {
				return err
			}
			if !keeper {
				// The active recorder owns this item until it earns keeper
				// status; reprocessing now would race the in-flight writer.
				return nil
			}
		}
	}

	seed := ""
	if len(items) > 0 {
		seed = items[0].Base.ID
	}
	if seed == "" {
		return nil
	}
	return seg.processor.ProcessFrom(ctx, seed)
}

// hydrate loads an item's visit/trip fields and samples, reusing the
// segment's cached samples when the item hasn't changed since last fetch.
func (seg *TimelineSegment) hydrate(ctx context.Context, base *TimelineItemBase) (*TimelineItem, error) {
	var visit *TimelineItemVisit
	var trip *TimelineItemTrip

	err := seg.engine.Read(ctx, func(tx ReadTx) error {
		var err error
		if base.IsVisit {
			visit, err = tx.Visit(ctx, base.ID)
		} else {
			trip, err = tx.Trip(ctx, base.ID)
		}
		return err
	})
	if err != nil {
		return nil, wrapPersistence(err, "hydrate visit/trip")
	}

	seg.samplesMu.Lock()
	cached, ok := seg.samples[base.ID]
	seg.samplesMu.Unlock()
	if !base.SamplesChanged && ok {
		return NewTimelineItem(base, visit, trip).WithSamples(cached), nil
	}

	var samples []*LocomotionSample
	err = seg.engine.Read(ctx, func(tx ReadTx) error {
		var err error
		samples, err = tx.Samples(ctx, base.ID)
		return err
	})
	if err != nil {
		return nil, wrapPersistence(err, "hydrate samples")
	}

	seg.samplesMu.Lock()
	seg.samples[base.ID] = samples
	seg.samplesMu.Unlock()

	return NewTimelineItem(base, visit, trip).WithSamples(samples), nil
}
