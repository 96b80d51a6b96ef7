package timeline

import (
	"context"

	"github.com/go-kit/log"
)

// Timeline is the composition root the embedding application constructs:
// one per device, wiring together a persistence Engine, a change Bus, and
// the Processor that reconciles them. The package also exports the lower
// level pieces it is built from (NewProcessor, NewTimelineSegment,
// BuildWindow) for callers that wire them by hand.
type Timeline struct {
	cfg       Config
	engine    Engine
	bus       Bus
	processor *Processor
	logger    log.Logger
}

// New wires a Timeline around an already-constructed Engine and Bus.
func New(cfg Config, logger log.Logger, engine Engine, bus Bus) *Timeline {
	cfg.RegisterDefaults()
	if logger == nil {
		logger = log.NewNopLogger()
	}

	var probs ClassifierProbabilities
	if cfg.ClassifierProbabilitiesEnabled {
		probs = defaultClassifierProbabilities
	}

	return &Timeline{
		cfg:       cfg,
		engine:    engine,
		bus:       bus,
		processor: NewProcessor(engine, log.With(logger, "component", "processor"), probs),
		logger:    logger,
	}
}

// Engine exposes the underlying persistence engine, e.g. for callers that
// need to write samples directly (acquisition layer) ahead of processing.
func (t *Timeline) Engine() Engine {
	return t.engine
}

// Bus exposes the change-notification bus so callers can publish after a
// direct write that bypasses the processor (e.g. appending new samples).
func (t *Timeline) Bus() Bus {
	return t.bus
}

// NewSegment starts watching interval for changes, processing on update
// when shouldReprocessOnUpdate is set. The caller must Close the returned
// segment when done observing. fg and recorder may be nil; a nil
// ForegroundState is treated as always-inactive (the segment never
// reprocesses), and a nil TimelineRecorder is treated as "nothing is
// currently recording".
func (t *Timeline) NewSegment(ctx context.Context, id string, interval DateInterval, shouldReprocessOnUpdate bool, fg ForegroundState, recorder TimelineRecorder) *TimelineSegment {
	return NewTimelineSegment(ctx, id, interval, shouldReprocessOnUpdate, t.engine, t.bus, fg, recorder, t.processor, log.With(t.logger, "component", "segment", "segment_id", id))
}

// ProcessFrom runs the merge processor starting at itemID, outside of any
// segment — used by callers that know a specific item needs reconciling
// (e.g. right after the acquisition layer closes out a recording item).
func (t *Timeline) ProcessFrom(ctx context.Context, itemID string) error {
	return t.processor.ProcessFrom(ctx, itemID)
}

// Close releases the underlying engine.
func (t *Timeline) Close() error {
	return t.engine.Close()
}

// defaultClassifierProbabilities is a placeholder hook: it returns no
// probabilities, which scorer.scoreTripConsumer treats as "no signal" and
// falls through to Impossible, matching the source's disabled branch.
// Embedding applications that run an on-device classifier pass their own
// ClassifierProbabilities to achieve the Perfect/High/Medium/Low/VeryLow
// bands documented in spec.md §4.3.
func defaultClassifierProbabilities(sampleID string) map[ActivityType]float64 {
	return nil
}
