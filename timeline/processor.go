package timeline

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/willf/bloom"
)

var (
	metricProcessCalls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "timeline",
		Name:      "process_calls_total",
		Help:      "Total number of processFrom invocations.",
	})

	metricProcessNoMerge = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "timeline",
		Name:      "process_no_merge_total",
		Help:      "Total number of process() calls that found no non-impossible candidate.",
	})

	metricListSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timeline",
		Name:      "process_window_size",
		Help:      "Size of the linked-list window built by BuildWindow.",
		Buckets:   prometheus.LinearBuckets(1, 2, 11),
	})
)

// Processor is the TimelineActor from spec.md §5: a single logical serial
// execution context owning the in-memory linked-list views, the merge
// collector, the merge executor body, and the edge-cleansing loop. Callers
// must never run two Processor operations concurrently against the same
// Engine; nothing in this type enforces that itself, mirroring the
// source's reliance on a single-threaded actor rather than a mutex.
type Processor struct {
	engine                  Engine
	logger                  log.Logger
	classifierProbabilities ClassifierProbabilities
	alreadyMoved            *bloom.BloomFilter
}

// NewProcessor builds a Processor around an Engine. logger may be nil, in
// which case a no-op logger is used.
func NewProcessor(engine Engine, logger log.Logger, probs ClassifierProbabilities) *Processor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Processor{
		engine:                  engine,
		logger:                  logger,
		classifierProbabilities: probs,
	}
}

// ProcessFrom implements spec.md §4.8's processor entry point: build a
// window seeded at itemID, cleanse it to a fixpoint, collect and execute
// the single highest-scoring merge, then recurse on the surviving item.
// alreadyMoved is reset (not merged) at the start of every outer call, per
// §5's "Shared state" note.
//
// Per §7's propagation policy, a persistence failure anywhere in the call
// is caught here, at the outermost processor boundary, logged, and
// turned into quiescence (nil) rather than bubbling up: the timeline stays
// at its last consistent state and the next change event re-triggers
// processing. Any other error (a predicate failure, a topology invariant
// violation) still propagates to the caller.
func (p *Processor) ProcessFrom(ctx context.Context, itemID string) error {
	p.alreadyMoved = newAlreadyMovedFilter()
	err := p.processFrom(ctx, itemID)
	if err != nil && errors.Is(err, ErrPersistenceFailure) {
		level.Warn(p.logger).Log("msg", "persistence failure, deferring to next change event", "seed", itemID, "err", err)
		return nil
	}
	return err
}

func (p *Processor) processFrom(ctx context.Context, itemID string) error {
	metricProcessCalls.Inc()

	list, err := BuildWindow(itemID, p.loadItem(ctx))
	if err != nil {
		return err
	}
	metricListSize.Observe(float64(list.Len()))

	ec := &edgeCleanser{engine: p.engine, alreadyMoved: p.alreadyMoved}
	if _, err := ec.cleanseToFixpoint(ctx, list); err != nil {
		return err
	}

	s := newScorer(p.classifierProbabilities)
	candidates, err := collectMergeCandidates(list, s)
	if err != nil {
		return err
	}

	if len(candidates) == 0 || candidates[0].Score == Impossible {
		metricProcessNoMerge.Inc()
		level.Debug(p.logger).Log("msg", "no merge", "seed", itemID)
		return nil
	}

	top := candidates[0]
	result, err := executeMerge(ctx, p.engine, top)
	if err != nil {
		level.Warn(p.logger).Log("msg", "merge execution failed", "seed", itemID, "err", err)
		return err
	}

	level.Debug(p.logger).Log("msg", "merged", "kept", result.Kept.Base.ID, "killed", len(result.Killed))

	return p.processFrom(ctx, result.Kept.Base.ID)
}

// loadItem returns an ItemLoader backed by a single read transaction per
// item, matching the "suspend at any await on the persistence engine"
// model from spec.md §5.
func (p *Processor) loadItem(ctx context.Context) ItemLoader {
	return func(id string) (*TimelineItem, error) {
		var item *TimelineItem

		err := p.engine.Read(ctx, func(tx ReadTx) error {
			base, err := tx.ItemBase(ctx, id)
			if err != nil {
				return err
			}

			var visit *TimelineItemVisit
			var trip *TimelineItemTrip
			if base.IsVisit {
				visit, err = tx.Visit(ctx, id)
			} else {
				trip, err = tx.Trip(ctx, id)
			}
			if err != nil {
				return err
			}

			samples, err := tx.Samples(ctx, id)
			if err != nil {
				return err
			}

			item = NewTimelineItem(base, visit, trip).WithSamples(samples)
			return nil
		})
		if err != nil {
			return nil, wrapPersistence(err, "load item")
		}
		return item, nil
	}
}
