package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateIntervalIntersects(t *testing.T) {
	a := DateInterval{Start: baseTime, End: baseTime.Add(time.Hour)}

	overlapping := DateInterval{Start: baseTime.Add(30 * time.Minute), End: baseTime.Add(90 * time.Minute)}
	require.True(t, a.Intersects(overlapping))
	require.True(t, overlapping.Intersects(a))

	touching := DateInterval{Start: baseTime.Add(time.Hour), End: baseTime.Add(2 * time.Hour)}
	require.True(t, a.Intersects(touching))

	disjoint := DateInterval{Start: baseTime.Add(2 * time.Hour), End: baseTime.Add(3 * time.Hour)}
	require.False(t, a.Intersects(disjoint))
}

func TestLocomotionSampleActivityTypePrecedence(t *testing.T) {
	classified := activityType("walking")
	confirmed := activityType("running")

	s := &LocomotionSample{ClassifiedActivityType: classified}
	require.Equal(t, classified, s.ActivityType())

	s.ConfirmedActivityType = confirmed
	require.Equal(t, confirmed, s.ActivityType())
}

func TestLocomotionSampleHasCoordinate(t *testing.T) {
	s := &LocomotionSample{}
	require.False(t, s.HasCoordinate())

	s.Coordinate = &Coordinate{Latitude: 1, Longitude: 1}
	require.True(t, s.HasCoordinate())
}

func TestTimelineItemBaseDuration(t *testing.T) {
	b := &TimelineItemBase{StartDate: baseTime, EndDate: baseTime.Add(90 * time.Second)}
	require.Equal(t, 90*time.Second, b.Duration())
}

func TestTimelineItemVisitContains(t *testing.T) {
	v := &TimelineItemVisit{Center: Coordinate{Latitude: 1, Longitude: 1}, RadiusM: 200}
	require.True(t, v.Contains(Coordinate{Latitude: 1, Longitude: 1}))
	require.False(t, v.Contains(Coordinate{Latitude: 10, Longitude: 10}))
}

func TestTimelineItemVisitOverlaps(t *testing.T) {
	v1 := &TimelineItemVisit{Center: Coordinate{Latitude: 1, Longitude: 1}, RadiusM: 200}
	v2 := &TimelineItemVisit{Center: Coordinate{Latitude: 1.001, Longitude: 1}, RadiusM: 200}

	b1 := &TimelineItemBase{StartDate: baseTime, EndDate: baseTime.Add(10 * time.Minute)}
	b2 := &TimelineItemBase{StartDate: baseTime.Add(5 * time.Minute), EndDate: baseTime.Add(15 * time.Minute)}
	require.True(t, v1.Overlaps(v2, b1, b2))

	b3 := &TimelineItemBase{StartDate: baseTime.Add(10 * time.Minute), EndDate: baseTime.Add(20 * time.Minute)}
	require.False(t, v1.Overlaps(v2, b1, b3))
}

func TestTimelineItemTripActivityTypePrecedence(t *testing.T) {
	classified := activityType("walking")
	confirmed := activityType("cycling")

	trip := &TimelineItemTrip{ClassifiedActivityType: classified}
	require.Equal(t, classified, trip.ActivityType())

	trip.ConfirmedActivityType = confirmed
	require.Equal(t, confirmed, trip.ActivityType())
}

func TestTimelineItemSamplesLifecycle(t *testing.T) {
	item := tripItem("a", baseTime, baseTime.Add(time.Minute), 10, 1)
	require.False(t, item.SamplesLoaded())

	s1 := &LocomotionSample{ID: "s1"}
	s2 := &LocomotionSample{ID: "s2", Disabled: true}
	item.WithSamples([]*LocomotionSample{s1, s2})

	require.True(t, item.SamplesLoaded())
	require.Len(t, item.Samples(), 1)
	require.Len(t, item.AllSamples(), 2)
}

func TestTimelineItemWithSamplesNilBecomesEmptySlice(t *testing.T) {
	item := tripItem("a", baseTime, baseTime.Add(time.Minute), 10, 1)
	item.WithSamples(nil)
	require.True(t, item.SamplesLoaded())
	require.Empty(t, item.Samples())
}

func TestTimelineItemActivityType(t *testing.T) {
	walking := activityType("walking")
	trip := tripItem("a", baseTime, baseTime.Add(time.Minute), 10, 1)
	trip.Trip.ClassifiedActivityType = walking
	require.Equal(t, walking, trip.ActivityType())

	visit := visitItem("b", baseTime, baseTime.Add(time.Minute), Coordinate{}, 50)
	require.Nil(t, visit.ActivityType())
}
