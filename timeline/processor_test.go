package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProcessorMergesAdjacentDuplicateTrips(t *testing.T) {
	walking := activityType("walking")

	a := tripItem("a", baseTime, baseTime.Add(2*time.Minute), 100, 1)
	a.Trip.ClassifiedActivityType = walking
	b := tripItem("b", baseTime.Add(90*time.Second), baseTime.Add(150*time.Second), 100, 1)
	b.Trip.ClassifiedActivityType = walking

	a.Base.NextItemID = ptr("b")
	b.Base.PreviousItemID = ptr("a")

	sA1 := &LocomotionSample{ID: "a1", Date: baseTime, Coordinate: &Coordinate{Latitude: 1, Longitude: 1}, TimelineItemID: "a"}
	sA2 := &LocomotionSample{ID: "a2", Date: baseTime.Add(time.Minute), Coordinate: &Coordinate{Latitude: 1.001, Longitude: 1}, TimelineItemID: "a"}
	sB1 := &LocomotionSample{ID: "b1", Date: baseTime.Add(90 * time.Second), Coordinate: &Coordinate{Latitude: 1.002, Longitude: 1}, TimelineItemID: "b"}
	sB2 := &LocomotionSample{ID: "b2", Date: baseTime.Add(150 * time.Second), Coordinate: &Coordinate{Latitude: 1.003, Longitude: 1}, TimelineItemID: "b"}

	engine := newFakeEngine(a, b)
	for _, s := range []*LocomotionSample{sA1, sA2, sB1, sB2} {
		engine.samples[s.ID] = s
	}

	p := NewProcessor(engine, nil, nil)
	err := p.ProcessFrom(context.Background(), "a")
	require.NoError(t, err)

	// One of the two items absorbed the other; exactly one base should
	// remain non-deleted, and every sample should belong to it.
	var survivorID string
	deletedCount := 0
	for id, base := range engine.bases {
		if base.Deleted {
			deletedCount++
			continue
		}
		survivorID = id
	}
	require.Equal(t, 1, deletedCount)
	require.NotEmpty(t, survivorID)

	for _, s := range engine.samples {
		require.Equal(t, survivorID, s.TimelineItemID)
	}
}

// TestProcessorSwallowsPersistenceFailureAtOutermostBoundary exercises
// spec.md §7's propagation policy: a persistence failure reaching
// ProcessFrom is logged once and reported to the caller as nil
// (quiescence), not as an error.
func TestProcessorSwallowsPersistenceFailureAtOutermostBoundary(t *testing.T) {
	engine := newFakeEngine() // no "missing" base seeded: ItemBase will fail

	p := NewProcessor(engine, nil, nil)
	err := p.ProcessFrom(context.Background(), "missing")
	require.NoError(t, err)
}

func TestProcessorNoMergeWhenImpossible(t *testing.T) {
	a := tripItem("a", baseTime, baseTime.Add(2*time.Minute), 100, 1)
	a.Base.Source = "mobile"
	b := tripItem("b", baseTime.Add(2*time.Minute), baseTime.Add(4*time.Minute), 100, 1)
	b.Base.Source = "import"

	a.Base.NextItemID = ptr("b")
	b.Base.PreviousItemID = ptr("a")

	engine := newFakeEngine(a, b)
	// Both items own a sample: an empty consumee scores Perfect before the
	// source check is ever reached.
	engine.samples["a1"] = &LocomotionSample{ID: "a1", Date: baseTime, Coordinate: &Coordinate{Latitude: 1, Longitude: 1}, TimelineItemID: "a"}
	engine.samples["b1"] = &LocomotionSample{ID: "b1", Date: baseTime.Add(3 * time.Minute), Coordinate: &Coordinate{Latitude: 1.001, Longitude: 1}, TimelineItemID: "b"}

	p := NewProcessor(engine, nil, nil)
	err := p.ProcessFrom(context.Background(), "a")
	require.NoError(t, err)

	require.False(t, engine.bases["a"].Deleted)
	require.False(t, engine.bases["b"].Deleted)
}
