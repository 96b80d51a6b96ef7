package timeline

import (
	"math"
	"time"
)

const earthRadiusMeters = 6371000.0

// haversineMeters is the great-circle distance between two coordinates.
func haversineMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// timeInterval returns the signed gap, in seconds, between two date
// ranges: negative magnitude is overlap duration, positive is the gap
// between them, zero is edge-touching. a is assumed chronologically
// before or equal to b for the purposes of this calculation; the caller
// supplies items in link order.
func timeInterval(a, b *TimelineItemBase) float64 {
	if a.EndDate.Before(b.StartDate) {
		return b.StartDate.Sub(a.EndDate).Seconds()
	}
	if b.EndDate.Before(a.StartDate) {
		return a.StartDate.Sub(b.EndDate).Seconds()
	}

	// overlap: the magnitude of the overlap, negated
	overlapStart := a.StartDate
	if b.StartDate.After(overlapStart) {
		overlapStart = b.StartDate
	}
	overlapEnd := a.EndDate
	if b.EndDate.Before(overlapEnd) {
		overlapEnd = b.EndDate
	}
	overlap := overlapEnd.Sub(overlapStart).Seconds()
	if overlap <= 0 {
		return 0
	}
	return -overlap
}

// edgeCoordinate returns the coordinate of the sample closest to the other
// item: the last sample if other comes after, the first if before.
func edgeCoordinate(item *TimelineItem, towardsLater bool) *Coordinate {
	samples := item.Samples()
	if len(samples) == 0 {
		return nil
	}

	if towardsLater {
		for i := len(samples) - 1; i >= 0; i-- {
			if samples[i].HasCoordinate() {
				return samples[i].Coordinate
			}
		}
		return nil
	}

	for _, s := range samples {
		if s.HasCoordinate() {
			return s.Coordinate
		}
	}
	return nil
}

// distance computes the geometry between two adjacent items, using the
// closest edge samples, or a visit's geofence center when one side is a
// visit. Returns (0, false) if either side lacks a usable coordinate.
func distance(a, b *TimelineItem) (float64, bool) {
	aIsEarlier := a.Base.StartDate.Before(b.Base.StartDate) || a.Base.StartDate.Equal(b.Base.StartDate)

	var aCoord, bCoord *Coordinate

	if a.Base.IsVisit && a.Visit != nil {
		aCoord = &a.Visit.Center
	} else {
		aCoord = edgeCoordinate(a, aIsEarlier)
	}

	if b.Base.IsVisit && b.Visit != nil {
		bCoord = &b.Visit.Center
	} else {
		bCoord = edgeCoordinate(b, !aIsEarlier)
	}

	if aCoord == nil || bCoord == nil {
		return 0, false
	}

	return haversineMeters(*aCoord, *bCoord), true
}

// maximumMergeableDistance bounds how far apart (in metres) two items may
// be and still be considered for a merge, given the time gap between them.
func maximumMergeableDistance(a, b *TimelineItem) float64 {
	gap := math.Abs(timeInterval(a.Base, b.Base))

	switch {
	case a.Base.IsVisit && b.Base.IsVisit:
		return math.Inf(1)

	case a.Base.IsVisit != b.Base.IsVisit:
		trip := a
		if a.Base.IsVisit {
			trip = b
		}
		speed := 0.0
		if trip.Trip != nil {
			speed = trip.Trip.SpeedMPS
		}
		return math.Max(CleansingVisitTripMinMergeableFloorM, CleansingVisitTripMinMergeableSlope*speed*gap)

	default: // trip <-> trip
		speeds := make([]float64, 0, 2)
		if a.Trip != nil && a.Trip.SpeedMPS > 0 {
			speeds = append(speeds, a.Trip.SpeedMPS)
		}
		if b.Trip != nil && b.Trip.SpeedMPS > 0 {
			speeds = append(speeds, b.Trip.SpeedMPS)
		}
		if len(speeds) == 0 {
			return 0
		}
		sum := 0.0
		for _, s := range speeds {
			sum += s
		}
		mean := sum / float64(len(speeds))
		return 4 * mean * gap
	}
}

// isWithinMergeableDistance implements spec.md §4.2. Requires both items'
// samples to be loaded when neither is nolo (isNolo itself requires samples).
func isWithinMergeableDistance(a, b *TimelineItem) (bool, error) {
	aNolo, err := isNolo(a)
	if err != nil {
		return false, err
	}
	if aNolo {
		return true, nil
	}

	bNolo, err := isNolo(b)
	if err != nil {
		return false, err
	}
	if bNolo {
		return true, nil
	}

	if timeInterval(a.Base, b.Base) < 0 {
		return true, nil
	}

	d, ok := distance(a, b)
	if !ok {
		return true, nil // no usable coordinate to reject on; let the caller's other checks decide
	}

	return d <= maximumMergeableDistance(a, b), nil
}

// within reports v <= limit (an inclusive upper bound with no lower bound),
// used by the cleansing gate's 10 minute cap.
func within(v, limit time.Duration) bool {
	return v <= limit
}
