package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollectMergeCandidatesFindsAdjacentPair(t *testing.T) {
	walking := activityType("walking")

	a := tripItem("a", baseTime, baseTime.Add(2*time.Minute), 100, 1)
	a.Trip.ClassifiedActivityType = walking
	a.WithSamples([]*LocomotionSample{
		sample("s1", baseTime, &Coordinate{Latitude: 1, Longitude: 1}, 1),
		sample("s2", baseTime.Add(time.Minute), &Coordinate{Latitude: 1.001, Longitude: 1}, 1),
	})

	b := tripItem("b", baseTime.Add(90*time.Second), baseTime.Add(150*time.Second), 100, 1)
	b.Trip.ClassifiedActivityType = walking
	b.WithSamples([]*LocomotionSample{
		sample("s3", baseTime.Add(90*time.Second), &Coordinate{Latitude: 1.002, Longitude: 1}, 1),
		sample("s4", baseTime.Add(150*time.Second), &Coordinate{Latitude: 1.003, Longitude: 1}, 1),
	})

	a.Base.NextItemID = ptr("b")
	b.Base.PreviousItemID = ptr("a")

	list := NewTimelineLinkedList([]*TimelineItem{a, b})
	s := newScorer(nil)

	candidates, err := collectMergeCandidates(list, s)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.Equal(t, Perfect, candidates[0].Score)
}

func TestMergeCandidateSignatureDedupesReversedRoles(t *testing.T) {
	a := tripItem("a", baseTime, baseTime.Add(time.Minute), 10, 1)
	b := tripItem("b", baseTime.Add(time.Minute), baseTime.Add(2*time.Minute), 10, 1)

	c1 := &MergeCandidate{Keeper: a, Deadman: b}
	c2 := &MergeCandidate{Keeper: a, Deadman: b}
	c3 := &MergeCandidate{Keeper: b, Deadman: a}

	require.Equal(t, c1.signature(), c2.signature())
	require.NotEqual(t, c1.signature(), c3.signature())
}
