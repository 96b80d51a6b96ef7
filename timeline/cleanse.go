package timeline

import (
	"context"
	"sort"
	"time"

	"github.com/willf/bloom"
	"go.uber.org/atomic"
)

// edgeCleanser runs the fixpoint loop from spec.md §4.7. alreadyMoved is the
// process-wide cycle guard: a bloom filter of sample ids moved by this or
// earlier processFrom calls on the same TimelineActor, carried by the
// Processor and overwritten (not merged) at the start of each outer call.
type edgeCleanser struct {
	engine       Engine
	alreadyMoved *bloom.BloomFilter
}

func newAlreadyMovedFilter() *bloom.BloomFilter {
	return bloom.NewWithEstimates(10000, 0.01)
}

// cleanseToFixpoint repeatedly scans list for a movable boundary sample and
// applies the move in its own write transaction, stopping when a pass finds
// no move other than ones that would repeat a previously-moved sample (cycle
// guard), or after maximumEdgeSteals moves. It returns the number of samples
// moved.
func (ec *edgeCleanser) cleanseToFixpoint(ctx context.Context, list *TimelineLinkedList) (int, error) {
	var moved atomic.Int32

	for moved.Load() < MaximumEdgeSteals {
		move, err := ec.findMove(list)
		if err != nil {
			return int(moved.Load()), err
		}
		if move == nil {
			return int(moved.Load()), nil
		}

		if err := ec.apply(ctx, move); err != nil {
			return int(moved.Load()), err
		}
		ec.alreadyMoved.AddString(move.sample.ID)
		moved.Inc()
	}

	return int(moved.Load()), nil
}

type edgeMove struct {
	sample *LocomotionSample
	from   *TimelineItem
	to     *TimelineItem
}

// findMove scans every same-source, non-deleted trip-bearing neighbour pair
// in list order and returns the first move found, applying the trip↔trip
// rule to a trip/trip pair and the visit↔trip rule to a mixed pair; a
// visit/visit pair is skipped. A pair whose candidate sample is already in
// ec.alreadyMoved (the theirEdge ∉ excluding guard from spec.md §4.7) is
// skipped rather than returned, so a stale rediscovery at the first boundary
// doesn't stop the scan from reaching a later, still-untried boundary.
func (ec *edgeCleanser) findMove(list *TimelineLinkedList) (*edgeMove, error) {
	for _, item := range list.Items() {
		next, ok := list.NextItem(item)
		if !ok {
			continue
		}
		if item.Base.Deleted || next.Base.Deleted || item.Base.Source != next.Base.Source {
			continue
		}
		ok2, err := isWithinMergeableDistance(item, next)
		if err != nil {
			return nil, err
		}
		gap := time.Duration(timeInterval(item.Base, next.Base) * float64(time.Second))
		if !ok2 || !within(gap, CleansingMaxTimeInterval) {
			continue
		}

		var move *edgeMove
		switch {
		case item.Base.IsVisit == next.Base.IsVisit && !item.Base.IsVisit:
			move, err = tripTripMove(item, next)
		case item.Base.IsVisit != next.Base.IsVisit:
			visit, trip := item, next
			if trip.Base.IsVisit {
				visit, trip = next, item
			}
			move, err = visitTripMove(visit, trip)
		}
		if err != nil {
			return nil, err
		}
		if move == nil {
			continue
		}
		if ec.alreadyMoved.TestString(move.sample.ID) {
			continue
		}
		return move, nil
	}
	return nil, nil
}

// tripTripMove implements the trip↔trip rule. myEdge/theirEdge are each
// trip's sample nearest the other trip.
func tripTripMove(a, b *TimelineItem) (*edgeMove, error) {
	if a.Trip == nil || b.Trip == nil {
		return nil, nil
	}
	aType, bType := a.Trip.ActivityType(), b.Trip.ActivityType()
	if aType == nil || bType == nil || *aType == *bType {
		return nil, nil
	}

	myEdge := nearestEdgeSample(a, walkNext)
	theirEdge := nearestEdgeSample(b, walkPrevious)
	if myEdge == nil || theirEdge == nil {
		return nil, nil
	}

	mySlow := myEdge.Speed < MaximumModeShiftSpeedMPS
	theirSlow := theirEdge.Speed < MaximumModeShiftSpeedMPS
	if mySlow != theirSlow {
		return nil, nil
	}

	if theirEdge.ClassifiedActivityType != nil && *theirEdge.ClassifiedActivityType == *aType {
		return &edgeMove{sample: theirEdge, from: b, to: a}, nil
	}
	return nil, nil
}

// visitTripMove implements the visit↔trip rule.
func visitTripMove(visit, trip *TimelineItem) (*edgeMove, error) {
	if visit.Visit == nil || trip.Trip == nil {
		return nil, nil
	}

	// dir is the trip's boundary that faces the visit.
	dir := walkPrevious
	if !isPreviousOf(visit, trip) {
		dir = walkNext
	}

	edges := edgeSamples(trip, dir, 2)
	if len(edges) == 0 {
		return nil, nil
	}
	nearestTripEdge := edges[0]

	bothInside := true
	for _, s := range edges {
		if !s.HasCoordinate() || !visit.Visit.Contains(*s.Coordinate) {
			bothInside = false
			break
		}
	}
	if bothInside {
		return &edgeMove{sample: nearestTripEdge, from: trip, to: visit}, nil
	}

	visitEdges := edgeSamples(visit, oppositeDirection(dir), 2)
	if len(visitEdges) == 2 && visitEdges[0].Date.Sub(visitEdges[1].Date).Abs() > CleansingVisitEdgePairDurationCap {
		return nil, nil
	}

	if nearestTripEdge.HasCoordinate() && !visit.Visit.Contains(*nearestTripEdge.Coordinate) && len(visitEdges) > 0 {
		return &edgeMove{sample: visitEdges[0], from: visit, to: trip}, nil
	}

	return nil, nil
}

// isPreviousOf reports whether a directly precedes b in the linked list.
func isPreviousOf(a, b *TimelineItem) bool {
	return idEquals(a.Base.NextItemID, b.Base.ID)
}

func oppositeDirection(d walkDirection) walkDirection {
	if d == walkNext {
		return walkPrevious
	}
	return walkNext
}

// nearestEdgeSample returns the single sample nearest the dir-side boundary.
func nearestEdgeSample(item *TimelineItem, dir walkDirection) *LocomotionSample {
	edges := edgeSamples(item, dir, 1)
	if len(edges) == 0 {
		return nil
	}
	return edges[0]
}

// edgeSamples returns up to n of item's non-disabled samples nearest the
// dir-side boundary, ordered from the boundary inward.
func edgeSamples(item *TimelineItem, dir walkDirection, n int) []*LocomotionSample {
	samples := append([]*LocomotionSample(nil), item.Samples()...)
	sort.Slice(samples, func(i, j int) bool { return samples[i].Date.Before(samples[j].Date) })

	if len(samples) == 0 {
		return nil
	}
	if dir == walkNext {
		if len(samples) > n {
			samples = samples[len(samples)-n:]
		}
		reverse(samples)
		return samples
	}
	if len(samples) > n {
		samples = samples[:n]
	}
	return samples
}

func reverse(s []*LocomotionSample) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// apply persists one edge move: reassign the sample and mark both endpoints
// samplesChanged, per the §9 correction to the "TODO" left in the source.
func (ec *edgeCleanser) apply(ctx context.Context, move *edgeMove) error {
	err := ec.engine.Write(ctx, func(tx WriteTx) error {
		if err := tx.ReassignSample(ctx, move.sample.ID, move.to.Base.ID); err != nil {
			return wrapPersistence(err, "reassign edge sample")
		}
		if err := tx.SetSamplesChanged(ctx, move.from.Base.ID, true); err != nil {
			return wrapPersistence(err, "mark source samplesChanged")
		}
		if err := tx.SetSamplesChanged(ctx, move.to.Base.ID, true); err != nil {
			return wrapPersistence(err, "mark destination samplesChanged")
		}
		return nil
	})
	if err != nil {
		return err
	}

	move.sample.TimelineItemID = move.to.Base.ID
	move.from.relocateSample(move.sample, move.to)
	move.from.Base.SamplesChanged = true
	move.to.Base.SamplesChanged = true
	return nil
}
