// Package timeline reconstructs a stable, non-overlapping history of visits
// and trips from a persisted, doubly-linked sequence of timeline items and
// the location samples they own.
//
// The package owns the scoring and rewriting logic; it never talks to a
// database or a notification bus directly. Callers supply an Engine
// (persistence, e.g. store.Engine) and a Bus (change notifications, e.g.
// bus.InProcess) to the composition root in timeline.go.
package timeline

import (
	"sort"
	"time"
)

// RecordingState mirrors the acquisition layer's sample lifecycle tag.
type RecordingState string

const (
	RecordingOff         RecordingState = "off"
	RecordingOn          RecordingState = "recording"
	RecordingSleeping    RecordingState = "sleeping"
	RecordingDeepSleep   RecordingState = "deepSleeping"
	RecordingWakeup      RecordingState = "wakeup"
	RecordingStandby     RecordingState = "standby"
)

// ActivityType is the classifier/confirmation vocabulary. The core treats
// it as an opaque comparable value; it never interprets the string itself.
type ActivityType string

// Coordinate is a WGS84 lat/lon pair.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DateInterval is a closed [Start, End] span of time, the unit the change
// notification bus publishes and the unit a TimelineSegment watches.
type DateInterval struct {
	Start time.Time
	End   time.Time
}

// Intersects reports whether the two intervals share any instant.
func (d DateInterval) Intersects(other DateInterval) bool {
	return !d.End.Before(other.Start) && !other.End.Before(d.Start)
}

// LocomotionSample is a single timestamped observation produced by the
// acquisition layer and (optionally) annotated by the activity classifier.
type LocomotionSample struct {
	ID                      string
	Date                    time.Time
	Coordinate              *Coordinate
	HorizontalAccuracy      float64
	Speed                   float64
	Course                  float64
	Altitude                float64
	RecordingState          RecordingState
	ClassifiedActivityType  *ActivityType
	ConfirmedActivityType   *ActivityType
	TimelineItemID          string
	Disabled                bool
}

// ActivityType resolves the confirmed type over the classified one, the
// same precedence TimelineItemTrip.ActivityType uses.
func (s *LocomotionSample) ActivityType() *ActivityType {
	if s.ConfirmedActivityType != nil {
		return s.ConfirmedActivityType
	}
	return s.ClassifiedActivityType
}

// HasCoordinate reports whether the sample has a location fix.
func (s *LocomotionSample) HasCoordinate() bool {
	return s.Coordinate != nil
}

// TimelineItemBase is the topology node shared by visits and trips: a
// contiguous span of time, a place in the doubly-linked sequence, and the
// bookkeeping flags the processor and store need.
type TimelineItemBase struct {
	ID              string
	IsVisit         bool
	StartDate       time.Time
	EndDate         time.Time
	Source          string
	PreviousItemID  *string
	NextItemID      *string
	Disabled        bool
	Deleted         bool
	SamplesChanged  bool
}

// Duration is EndDate - StartDate. Callers must preserve StartDate <= EndDate.
func (b *TimelineItemBase) Duration() time.Duration {
	return b.EndDate.Sub(b.StartDate)
}

// TimelineItemVisit is the geofence half of a visit item.
type TimelineItemVisit struct {
	ItemID    string
	Center    Coordinate
	RadiusM   float64
}

// Contains is a simple circle test against the visit's geofence.
func (v *TimelineItemVisit) Contains(c Coordinate) bool {
	return haversineMeters(v.Center, c) <= v.RadiusM
}

// Overlaps reports temporal and spatial overlap with another visit. Spatial
// overlap is approximated as the two geofence circles intersecting.
func (v *TimelineItemVisit) Overlaps(other *TimelineItemVisit, mine, theirs *TimelineItemBase) bool {
	if timeInterval(mine, theirs) >= 0 {
		return false
	}
	return haversineMeters(v.Center, other.Center) <= v.RadiusM+other.RadiusM
}

// TimelineItemTrip is the movement half of a trip item.
type TimelineItemTrip struct {
	ItemID                 string
	DistanceM              float64
	SpeedMPS               float64
	ClassifiedActivityType *ActivityType
	ConfirmedActivityType  *ActivityType
}

// ActivityType resolves confirmed over classified, per spec.md §3.
func (t *TimelineItemTrip) ActivityType() *ActivityType {
	if t.ConfirmedActivityType != nil {
		return t.ConfirmedActivityType
	}
	return t.ClassifiedActivityType
}

// TimelineItem is the hydrated bundle the processor operates on: a base,
// its visit or trip fields, and (when loaded) its samples.
type TimelineItem struct {
	Base    *TimelineItemBase
	Visit   *TimelineItemVisit
	Trip    *TimelineItemTrip
	samples []*LocomotionSample // nil means "not hydrated"; loaded means non-nil (possibly empty)
}

// NewTimelineItem wraps a base with its visit/trip fields. Samples are not
// attached; call HydrateSamples or WithSamples before calling any predicate.
func NewTimelineItem(base *TimelineItemBase, visit *TimelineItemVisit, trip *TimelineItemTrip) *TimelineItem {
	return &TimelineItem{Base: base, Visit: visit, Trip: trip}
}

// WithSamples attaches already-loaded samples to the item, enabling the
// sample-dependent predicates and scoring functions.
func (t *TimelineItem) WithSamples(samples []*LocomotionSample) *TimelineItem {
	if samples == nil {
		samples = []*LocomotionSample{}
	}
	t.samples = samples
	return t
}

// SamplesLoaded reports whether the item's samples have been hydrated.
func (t *TimelineItem) SamplesLoaded() bool {
	return t.samples != nil
}

// Samples returns the loaded, non-disabled samples in the item, ordered by
// date. Callers requiring disabled samples too should use AllSamples.
func (t *TimelineItem) Samples() []*LocomotionSample {
	out := make([]*LocomotionSample, 0, len(t.samples))
	for _, s := range t.samples {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// AllSamples returns every loaded sample, including disabled ones.
func (t *TimelineItem) AllSamples() []*LocomotionSample {
	return t.samples
}

// relocateSample moves sample out of t's in-memory sample slice and into
// dest's, so a reassignment made durable by the store is also visible to
// any later scan over the same hydrated items within this process.
func (t *TimelineItem) relocateSample(sample *LocomotionSample, dest *TimelineItem) {
	for i, s := range t.samples {
		if s == sample {
			t.samples = append(t.samples[:i], t.samples[i+1:]...)
			break
		}
	}
	dest.samples = append(dest.samples, sample)
}

// ActivityType exposes the trip's resolved activity type, or nil for visits
// and data-less trips.
func (t *TimelineItem) ActivityType() *ActivityType {
	if t.Trip == nil {
		return nil
	}
	return t.Trip.ActivityType()
}

// Constants that are user-visible thresholds; must match spec.md §3
// bit-exactly.
const (
	VisitMinimumValidDuration   = 10 * time.Second
	VisitMinimumKeeperDuration  = 60 * time.Second

	TripMinimumValidDuration  = 10 * time.Second
	TripMinimumValidDistance  = 10.0 // metres
	TripMinimumValidSamples   = 2
	TripMinimumKeeperDuration = 60 * time.Second
	TripMinimumKeeperDistance = 20.0 // metres

	MaxProcessingListSize                  = 21
	MaximumPotentialMergesInProcessingLoop = 10
	MaximumEdgeSteals                      = 30
	MaximumModeShiftSpeedMPS               = 2.0 * 1000 / 3600 // 2 km/h

	CleansingMaxTimeInterval             = 10 * time.Minute
	CleansingVisitEdgePairDurationCap     = 120 * time.Second
	CleansingVisitTripMinMergeableFloorM  = 150.0
	CleansingVisitTripMinMergeableSlope   = 4.0
)
