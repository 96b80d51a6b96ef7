package timeline

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricMergesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timeline",
	Name:      "merges_executed_total",
	Help:      "Total number of merges committed by the merge executor.",
}, []string{"shape"})

// MergeResult is what a successful merge execution leaves behind: the
// surviving item and whatever was killed in the process.
type MergeResult struct {
	Kept   *TimelineItem
	Killed []*TimelineItem
}

// executeMerge implements spec.md §4.6. It re-checks the topology
// preconditions inside the write transaction before mutating anything, so
// a candidate computed against a slightly stale window is either applied
// safely or aborted with ErrTopologyInvariant — never applied against a
// topology it no longer matches.
func executeMerge(ctx context.Context, engine Engine, c *MergeCandidate) (*MergeResult, error) {
	var result *MergeResult

	err := engine.Write(ctx, func(tx WriteTx) error {
		if c.Keeper.Base.Deleted || c.Deadman.Base.Deleted || (c.Betweener != nil && c.Betweener.Base.Deleted) {
			return ErrTopologyInvariant
		}

		orientation, ok := canonicalOrientation(c)
		if !ok {
			return ErrTopologyInvariant
		}

		deadmanOnPreviousSide := orientation == orientationDeadmanFirst

		// farID is the item beyond the deadman, whose back pointer must now
		// name the keeper so previous/next links stay symmetric.
		var farID *string
		if deadmanOnPreviousSide {
			farID = c.Deadman.Base.PreviousItemID
			c.Keeper.Base.PreviousItemID = farID
		} else {
			farID = c.Deadman.Base.NextItemID
			c.Keeper.Base.NextItemID = farID
		}

		killed := make([]*TimelineItem, 0, 2)
		samplesToMove := make([]*LocomotionSample, 0)

		absorb := func(victim *TimelineItem) error {
			if victim == nil {
				return nil
			}

			samples, err := tx.Samples(ctx, victim.Base.ID)
			if err != nil {
				return wrapPersistence(err, "load victim samples")
			}

			anyDisabled := false
			for _, s := range samples {
				if s.Disabled {
					anyDisabled = true
					continue
				}
				samplesToMove = append(samplesToMove, s)
			}

			if anyDisabled {
				victim.Base.Disabled = true
			} else {
				victim.Base.Deleted = true
			}
			victim.Base.PreviousItemID = nil
			victim.Base.NextItemID = nil

			killed = append(killed, victim)
			return nil
		}

		if err := absorb(c.Betweener); err != nil {
			return err
		}
		if err := absorb(c.Deadman); err != nil {
			return err
		}

		if err := tx.PutItemBase(ctx, c.Keeper.Base); err != nil {
			return wrapPersistence(err, "persist keeper")
		}
		if c.Betweener != nil {
			if err := tx.PutItemBase(ctx, c.Betweener.Base); err != nil {
				return wrapPersistence(err, "persist betweener")
			}
		}
		if err := tx.PutItemBase(ctx, c.Deadman.Base); err != nil {
			return wrapPersistence(err, "persist deadman")
		}
		if farID != nil {
			far, err := tx.ItemBase(ctx, *farID)
			if err != nil {
				return wrapPersistence(err, "load far neighbour")
			}
			keeperID := c.Keeper.Base.ID
			if deadmanOnPreviousSide {
				far.NextItemID = &keeperID
			} else {
				far.PreviousItemID = &keeperID
			}
			if err := tx.PutItemBase(ctx, far); err != nil {
				return wrapPersistence(err, "persist far neighbour")
			}
		}

		for _, s := range samplesToMove {
			if err := tx.ReassignSample(ctx, s.ID, c.Keeper.Base.ID); err != nil {
				return wrapPersistence(err, "reassign sample")
			}
		}
		if len(samplesToMove) > 0 {
			if err := tx.SetSamplesChanged(ctx, c.Keeper.Base.ID, true); err != nil {
				return wrapPersistence(err, "mark keeper dirty")
			}
		}

		result = &MergeResult{Kept: c.Keeper, Killed: killed}
		return nil
	})

	if err != nil {
		return nil, err
	}

	shape := "adjacent"
	if c.Betweener != nil {
		shape = "betweener"
	}
	metricMergesExecuted.WithLabelValues(shape).Inc()

	return result, nil
}

type orientation int

const (
	orientationKeeperFirst orientation = iota
	orientationDeadmanFirst
)

// canonicalOrientation checks the pre-conditions from spec.md §4.6: for a
// two-item merge, keeper.next=deadman or deadman.next=keeper; for a
// three-item merge (with betweener), the same shape with betweener in the
// middle. Returns false if neither orientation holds.
func canonicalOrientation(c *MergeCandidate) (orientation, bool) {
	if c.Betweener == nil {
		if idEquals(c.Keeper.Base.NextItemID, c.Deadman.Base.ID) {
			return orientationKeeperFirst, true
		}
		if idEquals(c.Deadman.Base.NextItemID, c.Keeper.Base.ID) {
			return orientationDeadmanFirst, true
		}
		return 0, false
	}

	if idEquals(c.Keeper.Base.NextItemID, c.Betweener.Base.ID) &&
		idEquals(c.Betweener.Base.NextItemID, c.Deadman.Base.ID) {
		return orientationKeeperFirst, true
	}
	if idEquals(c.Deadman.Base.NextItemID, c.Betweener.Base.ID) &&
		idEquals(c.Betweener.Base.NextItemID, c.Keeper.Base.ID) {
		return orientationDeadmanFirst, true
	}
	return 0, false
}

func idEquals(ptr *string, id string) bool {
	return ptr != nil && *ptr == id
}
